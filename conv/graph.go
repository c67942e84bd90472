// Package conv provides the strided 2D convolutions used by the Saak transform.
//
// Both engines take NCHW float32 tensors and apply no padding.
package conv

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

// Graph runs convolutions on a gorgonia expression graph.
//
// Every call builds its own graph and tape machine, so a Graph is safe to share.
// Gorgonia has no transposed convolution op; ConvTranspose2d is delegated to Direct.
type Graph struct{}

func (Graph) Conv2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	return run(x, w, stride, false)
}

func (Graph) ConvReLU2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	return run(x, w, stride, true)
}

func (Graph) ConvTranspose2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	return Direct{}.ConvTranspose2d(x, w, stride)
}

func run(x, w *tensor.Dense, stride int, rectify bool) (*tensor.Dense, error) {
	if _, err := outputShape(x, w, stride); err != nil {
		return nil, err
	}
	g := G.NewGraph()

	var m maebe
	input := m.constant(g, x, "Input")
	filter := m.constant(g, w, "Filter")
	out := m.conv(input, filter, stride)
	if rectify {
		out = m.rectify(out)
	}
	if m.err != nil {
		return nil, m.err
	}

	var val G.Value
	G.Read(out, &val)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrapf(err, "conv graph failed. input %v, filter %v, stride %d", x.Shape(), w.Shape(), stride)
	}

	// the machine owns val's memory, so copy it out before closing.
	data, ok := val.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("conv graph produced %T. Expected []float32", val.Data())
	}
	backing := make([]float32, len(data))
	copy(backing, data)
	return tensor.New(tensor.WithShape(val.Shape().Clone()...), tensor.WithBacking(backing)), nil
}
