// Package phash computes and compares perceptual image hashes.
//
// Hashes are hex strings. Two hashes are compared bit by bit over their
// corresponding hex digits, so the Hamming distance between visually similar
// images is small.
package phash

import (
	"errors"
	"fmt"
	"image"
	"math/bits"

	"github.com/corona10/goimagehash"
)

// ErrIncomparable is returned when two hashes cannot be compared: one of them
// is missing, they differ in length, or they contain non-hex characters.
var ErrIncomparable = errors.New("hashes are not comparable")

// Compute returns the 64-bit perception hash of img as 16 lower-case hex digits.
func Compute(img image.Image) (string, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

// Distance returns the Hamming distance between a and b.
func Distance(a, b string) (int, error) {
	if a == "" || b == "" || len(a) != len(b) {
		return 0, ErrIncomparable
	}
	dist := 0
	for i := 0; i < len(a); i++ {
		x, ok := nibble(a[i])
		if !ok {
			return 0, ErrIncomparable
		}
		y, ok := nibble(b[i])
		if !ok {
			return 0, ErrIncomparable
		}
		dist += bits.OnesCount8(x ^ y)
	}
	return dist, nil
}

// Similar reports whether a and b are within threshold. Incomparable pairs are never similar.
func Similar(a, b string, threshold int) bool {
	d, err := Distance(a, b)
	return err == nil && d <= threshold
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
