// Package saak implements the Saak transform, a multi-stage feature extractor whose filters
// are derived from patch statistics with PCA instead of being learned by gradient descent.
//
// Each stage removes the patch mean, projects 2×2 patches onto sign-augmented principal
// components, rectifies the responses and keeps the scaled patch mean as a DC channel. Stages
// halve the spatial resolution until it reaches 1×1.
package saak

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Model is the trained state of a multi-stage Saak transform: one Stage per resolution.
// A Model is never mutated after Encode returns it.
type Model struct {
	Stages []Stage
}

// NumStages returns how many stages a square input of the given spatial extent goes through.
// extent must be a power of two no smaller than 2.
func NumStages(extent int) (int, error) {
	if extent < 2 || extent&(extent-1) != 0 {
		return 0, shapeErr("NumStages", "a power of two spatial extent ≥ 2", extent)
	}
	var n int
	for ; extent > 1; extent >>= 1 {
		n++
	}
	return n, nil
}

func stagesFor(op string, images *tensor.Dense) (int, error) {
	_, _, h, w, err := checkNCHW(op, images)
	if err != nil {
		return 0, err
	}
	if h != w {
		return 0, shapeErr(op, "square images", images.Shape())
	}
	return NumStages(h)
}

// Encode fits every stage of the transform on images, which must be (N, C, S, S) with S a power
// of two, and returns the model alongside each stage's output.
func Encode(images *tensor.Dense, conf Config) (*Model, []*tensor.Dense, error) {
	if !conf.IsValid() {
		return nil, nil, errors.WithStack(ErrInvalidConfig)
	}
	stages, err := stagesFor("Encode", images)
	if err != nil {
		return nil, nil, err
	}
	logger := conf.logger()

	m := &Model{Stages: make([]Stage, 0, stages)}
	outputs := make([]*tensor.Dense, 0, stages)
	data := images
	for i := 0; i < stages; i++ {
		var st Stage
		var out *tensor.Dense
		if st, out, err = TrainStage(data, conf); err != nil {
			return nil, nil, errors.WithMessagef(err, "stage %d", i)
		}
		logger.Printf("stage %d: input %v, retained %d components (%d filters, energy %.4f), output %v", i, data.Shape(), st.Retained, st.Kernels.Shape()[0], st.Energy, out.Shape())
		m.Stages = append(m.Stages, st)
		outputs = append(outputs, out)
		data = out
	}
	return m, outputs, nil
}

// Infer applies previously fitted stages, given as parallel slices of kernels and means, to images.
// There must be exactly one kernel/mean pair per stage the images go through.
func Infer(images *tensor.Dense, kernels, means []*tensor.Dense, conf Config) ([]*tensor.Dense, error) {
	if !conf.IsValid() {
		return nil, errors.WithStack(ErrInvalidConfig)
	}
	stages, err := stagesFor("Infer", images)
	if err != nil {
		return nil, err
	}
	if len(kernels) != stages || len(means) != stages {
		return nil, shapeErr("Infer", fmt.Sprintf("%d kernel/mean pairs", stages), fmt.Sprintf("%d kernels and %d means", len(kernels), len(means)))
	}
	logger := conf.logger()

	outputs := make([]*tensor.Dense, 0, stages)
	data := images
	for i := 0; i < stages; i++ {
		out, err := ApplyStage(data, Stage{Kernels: kernels[i], Mean: means[i]}, conf)
		if err != nil {
			return nil, errors.WithMessagef(err, "stage %d", i)
		}
		logger.Printf("stage %d: input %v, output %v", i, data.Shape(), out.Shape())
		outputs = append(outputs, out)
		data = out
	}
	return outputs, nil
}

// Infer applies the model to new images.
func (m *Model) Infer(images *tensor.Dense, conf Config) ([]*tensor.Dense, error) {
	return Infer(images, m.Kernels(), m.Means(), conf)
}

// Kernels returns the convolution kernels of every stage, in stage order.
func (m *Model) Kernels() []*tensor.Dense {
	retVal := make([]*tensor.Dense, len(m.Stages))
	for i, st := range m.Stages {
		retVal[i] = st.Kernels
	}
	return retVal
}

// Means returns the feature mean cuboids of every stage, in stage order.
func (m *Model) Means() []*tensor.Dense {
	retVal := make([]*tensor.Dense, len(m.Stages))
	for i, st := range m.Stages {
		retVal[i] = st.Mean
	}
	return retVal
}
