// Package imaging prepares uploaded photographs for storage: it decodes the
// upload, fixes orientation, bounds its size, re-encodes it as JPEG and
// fingerprints the result with a perceptual hash.
package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/anonto42/photowall/backend/pkg/phash"
)

const (
	DefaultMaxDimension = 1920
	DefaultJPEGQuality  = 85
)

// Processed is a normalized image ready to be stored
type Processed struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Hash        string
}

// Pipeline normalizes and hashes images
type Pipeline struct {
	MaxDimension int
	Quality      int
}

// NewPipeline returns a Pipeline with the default bounds.
func NewPipeline() *Pipeline {
	return &Pipeline{MaxDimension: DefaultMaxDimension, Quality: DefaultJPEGQuality}
}

// Process decodes data, shrinks it to fit MaxDimension, encodes it as JPEG and
// hashes the normalized pixels.
func (p *Pipeline) Process(data []byte) (*Processed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = p.fit(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality())); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	hash, err := phash.Compute(img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &Processed{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       b.Dx(),
		Height:      b.Dy(),
		Hash:        hash,
	}, nil
}

func (p *Pipeline) fit(img image.Image) image.Image {
	max := p.MaxDimension
	if max <= 0 {
		max = DefaultMaxDimension
	}
	b := img.Bounds()
	if b.Dx() <= max && b.Dy() <= max {
		return img
	}
	return imaging.Fit(img, max, max, imaging.Lanczos)
}

func (p *Pipeline) quality() int {
	if p.Quality <= 0 || p.Quality > 100 {
		return DefaultJPEGQuality
	}
	return p.Quality
}
