package conv

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Direct computes convolutions with plain loops over the tensor backings.
type Direct struct{}

func (Direct) Conv2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	return direct(x, w, stride, false)
}

func (Direct) ConvReLU2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	return direct(x, w, stride, true)
}

func direct(x, w *tensor.Dense, stride int, rectify bool) (*tensor.Dense, error) {
	shp, err := outputShape(x, w, stride)
	if err != nil {
		return nil, err
	}
	xs, ws := x.Shape(), w.Shape()
	n, c, h, wd := xs[0], xs[1], xs[2], xs[3]
	k, kh, kw := ws[0], ws[2], ws[3]
	oh, ow := shp[2], shp[3]

	in := x.Data().([]float32)
	f := w.Data().([]float32)
	out := make([]float32, shp.TotalSize())

	var idx int
	for b := 0; b < n; b++ {
		for o := 0; o < k; o++ {
			for i := 0; i < oh; i++ {
				for j := 0; j < ow; j++ {
					var acc float32
					for ch := 0; ch < c; ch++ {
						plane := in[(b*c+ch)*h*wd:]
						kern := f[(o*c+ch)*kh*kw:]
						for p := 0; p < kh; p++ {
							row := plane[(i*stride+p)*wd+j*stride:]
							for q := 0; q < kw; q++ {
								acc += row[q] * kern[p*kw+q]
							}
						}
					}
					if rectify && acc < 0 {
						acc = 0
					}
					out[idx] = acc
					idx++
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(shp...), tensor.WithBacking(out)), nil
}

// ConvTranspose2d is the adjoint of Conv2d: x is (N, K, h, w), w is (K, C, kh, kw) and the
// result is (N, C, (h-1)*stride+kh, (w-1)*stride+kw).
func (Direct) ConvTranspose2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	xs, ws := x.Shape(), w.Shape()
	if xs.Dims() != 4 || ws.Dims() != 4 {
		return nil, errors.Errorf("conv transpose expects 4-d input and filter. Got %v and %v", xs, ws)
	}
	if xs[1] != ws[0] {
		return nil, errors.Errorf("conv transpose: input has %d channels, filter expects %d", xs[1], ws[0])
	}
	if stride < 1 {
		return nil, errors.Errorf("invalid stride %d", stride)
	}
	n, k, h, wd := xs[0], xs[1], xs[2], xs[3]
	c, kh, kw := ws[1], ws[2], ws[3]
	oh, ow := (h-1)*stride+kh, (wd-1)*stride+kw

	in := x.Data().([]float32)
	f := w.Data().([]float32)
	out := make([]float32, n*c*oh*ow)
	for b := 0; b < n; b++ {
		for o := 0; o < k; o++ {
			plane := in[(b*k+o)*h*wd:]
			for i := 0; i < h; i++ {
				for j := 0; j < wd; j++ {
					v := plane[i*wd+j]
					if v == 0 {
						continue
					}
					for ch := 0; ch < c; ch++ {
						dst := out[(b*c+ch)*oh*ow:]
						kern := f[(o*c+ch)*kh*kw:]
						for p := 0; p < kh; p++ {
							row := dst[(i*stride+p)*ow+j*stride:]
							for q := 0; q < kw; q++ {
								row[q] += v * kern[p*kw+q]
							}
						}
					}
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, c, oh, ow), tensor.WithBacking(out)), nil
}

func outputShape(x, w *tensor.Dense, stride int) (tensor.Shape, error) {
	xs, ws := x.Shape(), w.Shape()
	if xs.Dims() != 4 || ws.Dims() != 4 {
		return nil, errors.Errorf("conv expects 4-d input and filter. Got %v and %v", xs, ws)
	}
	if xs[1] != ws[1] {
		return nil, errors.Errorf("conv: input has %d channels, filter expects %d", xs[1], ws[1])
	}
	if stride < 1 {
		return nil, errors.Errorf("invalid stride %d", stride)
	}
	if xs[2] < ws[2] || xs[3] < ws[3] {
		return nil, errors.Errorf("conv: input %v is smaller than filter %v", xs, ws)
	}
	return tensor.Shape{xs[0], ws[0], (xs[2]-ws[2])/stride + 1, (xs[3]-ws[3])/stride + 1}, nil
}
