package saak

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// PCAAugment fits principal components on a (P, D) batch of patch vectors and returns the
// sign-augmented filter bank [c1 … ck, -c1 … -ck] with the column mean of the batch.
//
// energy selects how many leading components are kept: all of them when energy is 1, otherwise
// the fewest whose cumulative explained variance ratio reaches energy. When every one of the D
// directions is kept, the last is dropped before augmentation; it is the DC direction and the
// stage carries DC separately.
func PCAAugment(patches *tensor.Dense, energy float64, dec Decomposer) (Augmented, error) {
	if energy <= 0 || energy > 1 {
		return Augmented{}, errors.Wrapf(ErrInvalidEnergy, "got %v", energy)
	}
	s := patches.Shape()
	if s.Dims() != 2 {
		return Augmented{}, shapeErr("PCAAugment", "(P, D)", s)
	}
	p, d := s[0], s[1]
	if p < 2 {
		return Augmented{}, numErr("PCAAugment", "need at least 2 patches to estimate a covariance. Got %d", p)
	}

	data := patches.Data().([]float32)
	mean := make([]float64, d)
	for _, v := range data {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return Augmented{}, numErr("PCAAugment", "patches contain non-finite values")
		}
	}
	for i := 0; i < p; i++ {
		row := data[i*d : (i+1)*d]
		for j, v := range row {
			mean[j] += float64(v)
		}
	}
	for j := range mean {
		mean[j] /= float64(p)
	}

	centred := mat.NewDense(p, d, nil)
	for i := 0; i < p; i++ {
		row := data[i*d : (i+1)*d]
		for j, v := range row {
			centred.Set(i, j, float64(v)-mean[j])
		}
	}

	comps, vars, err := dec.Decompose(centred)
	if err != nil {
		return Augmented{}, errors.Wrapf(err, "PCAAugment on %v patches", s)
	}
	if len(vars) == 0 {
		return Augmented{}, numErr("PCAAugment", "decomposition returned no components")
	}

	retained := retain(vars, energy)
	ac := retained
	if retained == d {
		ac = retained - 1
	}

	var total, captured float64
	for i, v := range vars {
		total += v
		if i < ac {
			captured += v
		}
	}
	energyCaptured := 1.0
	if total > 0 {
		energyCaptured = captured / total
	}

	bank := make([]float32, 2*ac*d)
	it := MakeRows(bank, 2*ac, d)
	for i := 0; i < ac; i++ {
		for j := 0; j < d; j++ {
			v := float32(comps.At(i, j))
			it[i][j] = v
			it[ac+i][j] = -v
		}
	}
	ReturnRows(2*ac, d, it)

	fmean := make([]float32, d)
	for j, v := range mean {
		fmean[j] = float32(v)
	}

	return Augmented{
		Filters:  tensor.New(tensor.WithShape(2*ac, d), tensor.WithBacking(bank)),
		Mean:     tensor.New(tensor.WithShape(d), tensor.WithBacking(fmean)),
		Retained: retained,
		Energy:   energyCaptured,
	}, nil
}

// retain returns how many leading components to keep. vars is sorted in descending order.
func retain(vars []float64, energy float64) int {
	if energy >= 1 {
		return len(vars)
	}
	var total float64
	for _, v := range vars {
		total += v
	}
	if total <= 0 {
		return len(vars)
	}
	var cum float64
	for i, v := range vars {
		cum += v
		if cum/total >= energy {
			return i + 1
		}
	}
	return len(vars)
}
