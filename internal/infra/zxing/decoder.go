// Package zxing decodes QR codes and 1D barcodes from frames using gozxing.
package zxing

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
)

// Decoder reports every QR code and 1D barcode visible in a frame. Readers
// keep per-call buffers, so a fresh set is built for every frame and one
// Decoder can be shared between requests.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewDecoder(tryHarder bool) *Decoder {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &Decoder{hints: hints}
}

func (d *Decoder) readers() []multi.MultipleBarcodeReader {
	return []multi.MultipleBarcodeReader{
		multiqr.NewQRCodeMultiReader(),
		newRegionReader(oned.NewMultiFormatUPCEANReader(d.hints)),
		newRegionReader(oned.NewCode128Reader()),
		newRegionReader(oned.NewCode39Reader()),
	}
}

func (d *Decoder) Decode(img image.Image) ([]string, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", port.ErrUndecodableFrame)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", port.ErrUndecodableFrame)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrUndecodableFrame, err)
	}

	var codes []string
	seen := make(map[string]struct{})
	for _, r := range d.readers() {
		// not found, checksum and format errors alike mean no further code
		// of this symbology; whatever was read before the error is kept
		results, _ := r.DecodeMultiple(bmp, d.hints)
		for _, res := range results {
			text := res.GetText()
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			codes = append(codes, text)
		}
	}
	return codes, nil
}
