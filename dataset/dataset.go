// Package dataset turns images into the (N, C, H, W) float32 batches the transform consumes.
package dataset

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"gorgonia.org/tensor"
)

// FromImages scales every image to a (size-2*pad)² grayscale square, centres it on a black
// size×size canvas and returns the batch as an (N, 1, size, size) tensor with values in [0, 1].
func FromImages(imgs []image.Image, size, pad int) (*tensor.Dense, error) {
	inner := size - 2*pad
	if inner < 1 || pad < 0 {
		return nil, errors.Errorf("cannot fit images into %d pixels with %d pixels of padding", size, pad)
	}
	if len(imgs) == 0 {
		return nil, errors.New("no images")
	}
	backing := make([]float32, len(imgs)*size*size)
	dr := image.Rect(pad, pad, pad+inner, pad+inner)
	for i, img := range imgs {
		if img == nil || img.Bounds().Empty() {
			return nil, errors.Errorf("image %d is empty", i)
		}
		canvas := image.NewGray(image.Rect(0, 0, size, size))
		draw.BiLinear.Scale(canvas, dr, img, img.Bounds(), draw.Src, nil)
		writeGray(backing[i*size*size:(i+1)*size*size], canvas)
	}
	return tensor.New(tensor.WithShape(len(imgs), 1, size, size), tensor.WithBacking(backing)), nil
}

func writeGray(dst []float32, g *image.Gray) {
	b := g.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst[(y-b.Min.Y)*w+(x-b.Min.X)] = float32(g.GrayAt(x, y).Y) / 255
		}
	}
}
