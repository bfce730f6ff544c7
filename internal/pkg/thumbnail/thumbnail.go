// Package thumbnail derives fixed-quality JPEG previews from image blobs.
package thumbnail

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	DefaultWidth   = 512
	DefaultHeight  = 512
	DefaultQuality = 80
)

// Builder produces JPEG thumbnails fitted within a bounding box, preserving
// the aspect ratio of the source.
type Builder struct {
	Width   int
	Height  int
	Quality int
}

func NewBuilder(width, height, quality int) *Builder {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Builder{Width: width, Height: height, Quality: quality}
}

// Build decodes an image blob and returns JPEG bytes fitted within the
// builder's box. Non-decodable input yields an error.
func (b *Builder) Build(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	fitted := imaging.Fit(img, b.Width, b.Height, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, fitted, imaging.JPEG, imaging.JPEGQuality(b.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}
