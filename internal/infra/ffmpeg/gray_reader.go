package ffmpeg

import (
	"errors"
	"fmt"
	"image"
	"io"
)

// grayReader cuts a rawvideo gray8 byte stream into frames. Only frames whose
// index is a multiple of stride are returned; the pixel buffer is reused.
type grayReader struct {
	r      io.Reader
	width  int
	height int
	stride int
	buf    []byte
	next   int
}

func newGrayReader(r io.Reader, width, height, stride int) *grayReader {
	if stride < 1 {
		stride = 1
	}
	return &grayReader{
		r:      r,
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, width*height),
	}
}

// read returns the next sampled frame and its index. A clean end of input
// yields io.EOF; a truncated frame yields io.ErrUnexpectedEOF.
func (g *grayReader) read() (*image.Gray, int, error) {
	for {
		idx := g.next
		if _, err := io.ReadFull(g.r, g.buf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, 0, io.EOF
			}
			return nil, 0, fmt.Errorf("read frame %d: %w", idx, err)
		}
		g.next++

		if idx%g.stride != 0 {
			continue
		}
		return &image.Gray{
			Pix:    g.buf,
			Stride: g.width,
			Rect:   image.Rect(0, 0, g.width, g.height),
		}, idx, nil
	}
}
