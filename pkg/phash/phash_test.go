package phash

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "a1b2c3d4e5f60718", "a1b2c3d4e5f60718", 0},
		{"one bit", "0000000000000000", "0000000000000001", 1},
		{"full nibble", "f", "0", 4},
		{"all bits", "ffffffffffffffff", "0000000000000000", 64},
		{"case insensitive", "ABCDEF", "abcdef", 0},
		{"binary strings", "0101", "0110", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistance_Incomparable(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"missing left", "", "00ff"},
		{"missing right", "00ff", ""},
		{"length mismatch", "00ff", "00f"},
		{"non hex", "zz", "00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Distance(tt.a, tt.b)
			assert.ErrorIs(t, err, ErrIncomparable)
			assert.False(t, Similar(tt.a, tt.b, 64))
		})
	}
}

func TestDistance_SelfZeroAndSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const digits = "0123456789abcdef"
	randomHash := func() string {
		b := make([]byte, 16)
		for i := range b {
			b[i] = digits[rng.Intn(len(digits))]
		}
		return string(b)
	}

	for i := 0; i < 200; i++ {
		a, b := randomHash(), randomHash()

		self, err := Distance(a, a)
		require.NoError(t, err)
		assert.Zero(t, self)

		ab, err := Distance(a, b)
		require.NoError(t, err)
		ba, err := Distance(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.LessOrEqual(t, ab, 64)
	}
}

func TestSimilar(t *testing.T) {
	assert.True(t, Similar("0000000000000000", "000000000000ffff", 16))
	assert.False(t, Similar("0000000000000000", "000000000000ffff", 15))
}

func TestCompute(t *testing.T) {
	img := gradient(64, 64, false)

	h1, err := Compute(img)
	require.NoError(t, err)
	assert.Len(t, h1, 16)

	h2, err := Compute(img)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	other, err := Compute(gradient(64, 64, true))
	require.NoError(t, err)
	d, err := Distance(h1, other)
	require.NoError(t, err)
	assert.Greater(t, d, 0)
}

func gradient(w, h int, vertical bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := x
			if vertical {
				v = y
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v * 255 / w)})
		}
	}
	return img
}
