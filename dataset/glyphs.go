package dataset

import (
	"image"
	"math/rand"
	"strconv"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"gorgonia.org/tensor"
)

var regular *truetype.Font

func init() {
	var err error
	if regular, err = truetype.Parse(goregular.TTF); err != nil {
		panic(err)
	}
}

// Glyphs renders n white-on-black digits on size×size canvases, a small stand-in for MNIST.
// Digit i is i%10. The glyph scale and position are jittered with a PRNG seeded with seed,
// so the same arguments always produce the same batch.
//
// The returned batch is (n, 1, size, size) with values in [0, 1].
func Glyphs(n, size int, seed int64) (*tensor.Dense, []int, error) {
	if n < 1 || size < 4 {
		return nil, nil, errors.Errorf("cannot render %d glyphs of size %d", n, size)
	}
	r := rand.New(rand.NewSource(seed))
	backing := make([]float32, n*size*size)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = i % 10
		canvas := image.NewGray(image.Rect(0, 0, size, size))
		pt := float64(size) * (0.6 + 0.25*r.Float64())
		drawGlyph(canvas, strconv.Itoa(labels[i]), pt, r.Intn(3)-1, r.Intn(3)-1)
		writeGray(backing[i*size*size:(i+1)*size*size], canvas)
	}
	return tensor.New(tensor.WithShape(n, 1, size, size), tensor.WithBacking(backing)), labels, nil
}

// drawGlyph draws s centred on dst, shifted by (dx, dy) pixels.
func drawGlyph(dst *image.Gray, s string, pt float64, dx, dy int) {
	face := truetype.NewFace(regular, &truetype.Options{
		Size:    pt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	b := dst.Bounds()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
	}
	metrics := face.Metrics()
	width := d.MeasureString(s)
	height := metrics.Ascent + metrics.Descent
	d.Dot = fixed.Point26_6{
		X: (fixed.I(b.Dx())-width)/2 + fixed.I(dx),
		Y: (fixed.I(b.Dy())-height)/2 + metrics.Ascent + fixed.I(dy),
	}
	d.DrawString(s)
}
