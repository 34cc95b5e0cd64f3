package integration

import (
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

// qrVideo renders content as a QR code and loops it into a short mpeg4 clip.
func qrVideo(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()

	matrix, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 320, 320, nil)
	require.NoError(t, err)
	gray := image.NewGray(matrix.Bounds())
	draw.Draw(gray, gray.Bounds(), matrix, image.Point{}, draw.Src)

	pngPath := filepath.Join(dir, "qr.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gray))
	require.NoError(t, f.Close())

	videoPath := filepath.Join(dir, "shelf.mp4")
	cmd := exec.Command("ffmpeg", "-v", "error", "-y",
		"-loop", "1", "-i", pngPath,
		"-t", "1", "-r", "5",
		"-c:v", "mpeg4", "-q:v", "2", "-pix_fmt", "yuv420p",
		videoPath,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return videoPath
}
