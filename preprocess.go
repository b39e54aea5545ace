package deepfake

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// rgbChannels is the channel count of every preprocessed image.
const rgbChannels = 3

// LoadImage decodes the image file at path.
// Supported formats: JPEG, PNG, GIF, WebP, BMP, TIFF.
func LoadImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return img, format, nil
}

// ResizeNearest scales src to width×height with nearest-neighbour sampling,
// dropping any alpha premultiplication.
func ResizeNearest(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ImageTensor converts img into a [1, H, W, 3] batch of RGB values in [0, 1].
func ImageTensor(img *image.NRGBA) *Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := NewTensor(1, h, w, rgbChannels)

	i := 0
	for y := range h {
		row := img.Pix[y*img.Stride:]
		for x := range w {
			px := row[x*4 : x*4+rgbChannels]
			for _, v := range px {
				t.Data[i] = float64(v) / 255 //nolint:mnd // 8-bit → [0, 1]
				i++
			}
		}
	}
	return t
}

// LoadImageTensor loads the image at path and prepares it for a model that
// expects width×height RGB input.
func LoadImageTensor(path string, width, height int) (*Tensor, error) {
	img, _, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ImageTensor(ResizeNearest(img, width, height)), nil
}
