package saak

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// Reconstruct approximately inverts a multi-stage transform.
//
// It starts from the output of the second-to-last stage; the last stage's output is only ever
// used as a terminal feature. Walking back one stage at a time, the AC channels go through the
// transposed convolution with that stage's kernels and the DC channel is spread back over its
// patch. The feature means, the dropped DC component and any truncated components are lost, so
// the result is the input minus the tiled first-stage feature mean at best.
func Reconstruct(outputs, kernels []*tensor.Dense, cv Convolver) (*tensor.Dense, error) {
	if len(outputs) != len(kernels) {
		return nil, shapeErr("Reconstruct", fmt.Sprintf("%d kernels", len(outputs)), len(kernels))
	}
	if len(outputs) < 2 {
		return nil, shapeErr("Reconstruct", "at least 2 stages", len(outputs))
	}

	data := outputs[len(outputs)-2]
	for i := len(outputs) - 2; i >= 0; i-- {
		var err error
		if data, err = inverseStage(data, kernels[i], cv); err != nil {
			return nil, errors.WithMessagef(err, "stage %d", i)
		}
	}
	return data, nil
}

func inverseStage(out, kernels *tensor.Dense, cv Convolver) (*tensor.Dense, error) {
	if _, _, _, _, err := checkNCHW("Reconstruct", out); err != nil {
		return nil, err
	}
	ks := kernels.Shape()
	if ks.Dims() != 4 {
		return nil, shapeErr("Reconstruct kernels", "(K, C, 2, 2)", ks)
	}
	k, c := ks[0], ks[1]
	if out.Shape()[1] != k+1 {
		return nil, shapeErr("Reconstruct", fmt.Sprintf("%d AC channels and 1 DC channel", k), out.Shape())
	}

	ac := channels(out, 0, k)
	dc := channels(out, k, k+1)

	rec, err := cv.ConvTranspose2d(ac, kernels, PatchExtent)
	if err != nil {
		return nil, errors.Wrap(err, "AC")
	}

	// the DC channel is mean*sqrt(4C); spreading it with 1/sqrt(4C) gives back the mean.
	spread := averagingKernel(c)
	d := float32(c * PatchExtent * PatchExtent)
	vecf32.Scale(spread.Data().([]float32), d/math32.Sqrt(d))
	dcRec, err := cv.ConvTranspose2d(dc, spread, PatchExtent)
	if err != nil {
		return nil, errors.Wrap(err, "DC")
	}
	vecf32.Add(rec.Data().([]float32), dcRec.Data().([]float32))
	return rec, nil
}
