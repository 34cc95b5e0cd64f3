package zxing

import (
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
)

const (
	regionMaxDepth     = 4
	regionMinDimension = 100
)

// regionReader turns a single-result reader into a multi-result one. After
// each hit it searches the strips left, right, above and below the found
// symbol, down to regionMaxDepth levels.
type regionReader struct {
	delegate gozxing.Reader
}

var _ multi.MultipleBarcodeReader = (*regionReader)(nil)

func newRegionReader(delegate gozxing.Reader) *regionReader {
	return &regionReader{delegate: delegate}
}

func (r *regionReader) DecodeMultipleWithoutHint(bmp *gozxing.BinaryBitmap) ([]*gozxing.Result, error) {
	return r.DecodeMultiple(bmp, nil)
}

func (r *regionReader) DecodeMultiple(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error) {
	var results []*gozxing.Result
	r.decodeRegion(bmp, hints, &results, 0)
	if len(results) == 0 {
		return nil, gozxing.NewNotFoundException()
	}
	return results, nil
}

func (r *regionReader) decodeRegion(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}, results *[]*gozxing.Result, depth int) {
	if depth > regionMaxDepth {
		return
	}

	res, err := r.delegate.Decode(bmp, hints)
	if err != nil {
		return
	}

	known := false
	for _, prev := range *results {
		if prev.GetText() == res.GetText() {
			known = true
			break
		}
	}
	if !known {
		*results = append(*results, res)
	}

	points := res.GetResultPoints()
	if len(points) == 0 {
		return
	}

	width, height := bmp.GetWidth(), bmp.GetHeight()
	minX, minY := float64(width), float64(height)
	maxX, maxY := 0.0, 0.0
	for _, p := range points {
		if p == nil {
			continue
		}
		minX = min(minX, p.GetX())
		minY = min(minY, p.GetY())
		maxX = max(maxX, p.GetX())
		maxY = max(maxY, p.GetY())
	}

	crop := func(left, top, w, h int) {
		sub, err := bmp.Crop(left, top, w, h)
		if err != nil {
			return
		}
		r.decodeRegion(sub, hints, results, depth+1)
	}

	if minX > regionMinDimension {
		crop(0, 0, int(minX), height)
	}
	if minY > regionMinDimension {
		crop(0, 0, width, int(minY))
	}
	if maxX < float64(width-regionMinDimension) {
		crop(int(maxX), 0, width-int(maxX), height)
	}
	if maxY < float64(height-regionMinDimension) {
		crop(0, int(maxY), width, height-int(maxY))
	}
}
