package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipeline_ProcessShrinksLargeImages(t *testing.T) {
	p := &Pipeline{MaxDimension: 200, Quality: 80}

	out, err := p.Process(encodePNG(t, 800, 400))
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, 200, out.Width)
	assert.Equal(t, 100, out.Height)
	assert.Len(t, out.Hash, 16)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
}

func TestPipeline_ProcessKeepsSmallImages(t *testing.T) {
	out, err := NewPipeline().Process(encodePNG(t, 120, 90))
	require.NoError(t, err)
	assert.Equal(t, 120, out.Width)
	assert.Equal(t, 90, out.Height)
}

func TestPipeline_SameInputSameHash(t *testing.T) {
	data := encodePNG(t, 300, 300)
	p := NewPipeline()

	a, err := p.Process(data)
	require.NoError(t, err)
	b, err := p.Process(data)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestPipeline_RejectsGarbage(t *testing.T) {
	_, err := NewPipeline().Process([]byte("definitely not an image"))
	assert.Error(t, err)
}
