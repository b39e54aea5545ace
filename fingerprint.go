package deepfake

import (
	"image"

	"github.com/corona10/goimagehash"
)

// Fingerprint holds perceptual hashes of an image. Two images whose hashes of
// the same kind are within a small Hamming distance look alike.
type Fingerprint struct {
	DHash string `json:"dhash,omitempty"` // difference hash, "d:<hex>"
	PHash string `json:"phash,omitempty"` // perception hash, "p:<hex>"
}

// FingerprintImage computes the perceptual hashes of img. A hash that cannot
// be computed is left empty (graceful degradation).
func FingerprintImage(img image.Image) Fingerprint {
	var fp Fingerprint
	if h, err := goimagehash.DifferenceHash(img); err == nil {
		fp.DHash = h.ToString()
	}
	if h, err := goimagehash.PerceptionHash(img); err == nil {
		fp.PHash = h.ToString()
	}
	return fp
}

// HashDistance returns the Hamming distance between two hashes produced by
// FingerprintImage. Hashes of different kinds cannot be compared.
func HashDistance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
