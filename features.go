package saak

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// SignedConvert undoes the sign augmentation of a stage output.
//
// A stage output of 2k+1 channels holds k positive responses, then their k negated twins, then DC.
// The result has k+1 channels: DC first, followed by positive[i] - negative[i].
func SignedConvert(output *tensor.Dense) (*tensor.Dense, error) {
	_, c, _, _, err := checkNCHW("SignedConvert", output)
	if err != nil {
		return nil, err
	}
	if c%2 != 1 {
		return nil, shapeErr("SignedConvert", "an odd number of channels (2k AC + 1 DC)", output.Shape())
	}
	k := (c - 1) / 2

	signed := channels(output, 0, k)
	neg := channels(output, k, 2*k)
	vecf32.Sub(signed.Data().([]float32), neg.Data().([]float32))
	return concatChannels(channels(output, 2*k, c), signed)
}

// FeatureDim is the width of the feature matrix AssembleFeatures builds from outputs.
func FeatureDim(outputs []*tensor.Dense) int {
	var dim int
	for _, out := range outputs {
		s := out.Shape()
		dim += ((s[1]-1)/2 + 1) * s[2] * s[3]
	}
	return dim
}

// AssembleFeatures signed-converts every stage output, flattens each sample and concatenates
// the stages in order into an (N, FeatureDim(outputs)) matrix.
func AssembleFeatures(outputs []*tensor.Dense) (*tensor.Dense, error) {
	if len(outputs) == 0 {
		return nil, errors.New("AssembleFeatures: no stage outputs")
	}
	n := outputs[0].Shape()[0]
	dim := FeatureDim(outputs)
	backing := make([]float32, n*dim)
	rows := MakeRows(backing, n, dim)
	defer ReturnRows(n, dim, rows)

	var offset int
	for i, out := range outputs {
		if out.Shape()[0] != n {
			return nil, shapeErr("AssembleFeatures", n, out.Shape()[0])
		}
		signed, err := SignedConvert(out)
		if err != nil {
			return nil, errors.WithMessagef(err, "stage %d", i)
		}
		width := signed.Shape().TotalSize() / n
		data := signed.Data().([]float32)
		for b, row := range rows {
			copy(row[offset:offset+width], data[b*width:(b+1)*width])
		}
		offset += width
	}
	return tensor.New(tensor.WithShape(n, dim), tensor.WithBacking(backing)), nil
}
