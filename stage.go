package saak

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// TrainStage fits one Saak stage on an (N, C, H, W) batch and applies it.
// The output is (N, K+1, H/2, W/2): K rectified AC responses followed by the DC channel.
func TrainStage(images *tensor.Dense, conf Config) (Stage, *tensor.Dense, error) {
	c, err := checkStageInput("TrainStage", images)
	if err != nil {
		return Stage{}, nil, err
	}
	patchMean, centred, err := removePatchMean(images, conf.Convolver)
	if err != nil {
		return Stage{}, nil, err
	}

	patches, err := ExtractPatches(centred, PatchExtent)
	if err != nil {
		return Stage{}, nil, err
	}
	aug, err := PCAAugment(patches, conf.Energy, conf.Decomposer)
	if err != nil {
		return Stage{}, nil, err
	}
	kernels, mean, err := ReshapeFilters(aug.Filters, aug.Mean, c)
	if err != nil {
		return Stage{}, nil, err
	}
	st := Stage{
		Kernels:  kernels,
		Mean:     mean,
		Retained: aug.Retained,
		Energy:   aug.Energy,
	}

	out, err := project(centred, patchMean, st, conf.Convolver)
	if err != nil {
		return Stage{}, nil, err
	}
	return st, out, nil
}

// ApplyStage applies a trained stage to an (N, C, H, W) batch.
func ApplyStage(images *tensor.Dense, st Stage, conf Config) (*tensor.Dense, error) {
	c, err := checkStageInput("ApplyStage", images)
	if err != nil {
		return nil, err
	}
	if st.Kernels == nil || st.Mean == nil {
		return nil, errors.New("ApplyStage: stage has no kernels or mean")
	}
	if ks := st.Kernels.Shape(); ks.Dims() != 4 || ks[1] != c || ks[2] != PatchExtent || ks[3] != PatchExtent {
		return nil, shapeErr("ApplyStage kernels", tensor.Shape{-1, c, PatchExtent, PatchExtent}, ks)
	}
	if ms := st.Mean.Shape(); !ms.Eq(tensor.Shape{c, PatchExtent, PatchExtent}) {
		return nil, shapeErr("ApplyStage mean", tensor.Shape{c, PatchExtent, PatchExtent}, ms)
	}

	patchMean, centred, err := removePatchMean(images, conf.Convolver)
	if err != nil {
		return nil, err
	}
	return project(centred, patchMean, st, conf.Convolver)
}

func checkStageInput(op string, images *tensor.Dense) (c int, err error) {
	var h, w int
	if _, c, h, w, err = checkNCHW(op, images); err != nil {
		return 0, err
	}
	if h < PatchExtent || w < PatchExtent || h%PatchExtent != 0 || w%PatchExtent != 0 {
		return 0, shapeErr(op, "even spatial dims of at least 2", images.Shape())
	}
	return c, nil
}

// averagingKernel is a (1, C, 2, 2) kernel whose every entry is 1/(4C).
func averagingKernel(c int) *tensor.Dense {
	d := c * PatchExtent * PatchExtent
	backing := make([]float32, d)
	for i := range backing {
		backing[i] = 1 / float32(d)
	}
	return tensor.New(tensor.WithShape(1, c, PatchExtent, PatchExtent), tensor.WithBacking(backing))
}

// removePatchMean returns the (N, 1, H/2, W/2) patch means of images and a copy of images with
// each patch's mean subtracted from all of its entries.
func removePatchMean(images *tensor.Dense, cv Convolver) (patchMean, centred *tensor.Dense, err error) {
	s := images.Shape()
	n, c, h, w := s[0], s[1], s[2], s[3]
	if patchMean, err = cv.Conv2d(images, averagingKernel(c), PatchExtent); err != nil {
		return nil, nil, errors.Wrap(err, "patch mean")
	}

	centred = images.Clone().(*tensor.Dense)
	data := centred.Data().([]float32)
	pm := patchMean.Data().([]float32)
	ph, pw := h/PatchExtent, w/PatchExtent
	for b := 0; b < n; b++ {
		means := pm[b*ph*pw : (b+1)*ph*pw]
		for ch := 0; ch < c; ch++ {
			plane := data[(b*c+ch)*h*w : (b*c+ch+1)*h*w]
			for y := 0; y < h; y++ {
				row := plane[y*w : (y+1)*w]
				up := means[(y/PatchExtent)*pw:]
				for x := range row {
					row[x] -= up[x/PatchExtent]
				}
			}
		}
	}
	return patchMean, centred, nil
}

// project removes the stage's feature mean from patch-mean-removed data, applies the rectified
// AC filters and appends the rescaled DC channel.
func project(centred, patchMean *tensor.Dense, st Stage, cv Convolver) (*tensor.Dense, error) {
	s := centred.Shape()
	n, c, h, w := s[0], s[1], s[2], s[3]

	tiled := tileMean(st.Mean, n, h, w)
	data := centred.Data().([]float32)
	vecf32.Sub(data, tiled)

	ac, err := cv.ConvReLU2d(centred, st.Kernels, PatchExtent)
	if err != nil {
		return nil, errors.Wrap(err, "AC filters")
	}

	dc := patchMean.Clone().(*tensor.Dense)
	vecf32.Scale(dc.Data().([]float32), math32.Sqrt(float32(c*PatchExtent*PatchExtent)))

	return concatChannels(ac, dc)
}

// tileMean repeats a (C, 2, 2) cuboid over an (N, C, H, W) grid and returns the flat backing.
func tileMean(mean *tensor.Dense, n, h, w int) []float32 {
	m := mean.Data().([]float32)
	c := mean.Shape()[0]
	retVal := make([]float32, n*c*h*w)
	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			plane := retVal[(b*c+ch)*h*w:]
			cell := m[ch*PatchExtent*PatchExtent:]
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					plane[y*w+x] = cell[(y%PatchExtent)*PatchExtent+x%PatchExtent]
				}
			}
		}
	}
	return retVal
}

// concatChannels joins two (N, *, H, W) tensors along the channel axis.
func concatChannels(a, b *tensor.Dense) (*tensor.Dense, error) {
	as, bs := a.Shape(), b.Shape()
	if as[0] != bs[0] || as[2] != bs[2] || as[3] != bs[3] {
		return nil, shapeErr("concat", as, bs)
	}
	n, hw := as[0], as[2]*as[3]
	ca, cb := as[1], bs[1]
	ad, bd := a.Data().([]float32), b.Data().([]float32)
	retVal := make([]float32, 0, n*(ca+cb)*hw)
	for i := 0; i < n; i++ {
		retVal = append(retVal, ad[i*ca*hw:(i+1)*ca*hw]...)
		retVal = append(retVal, bd[i*cb*hw:(i+1)*cb*hw]...)
	}
	return tensor.New(tensor.WithShape(n, ca+cb, as[2], as[3]), tensor.WithBacking(retVal)), nil
}
