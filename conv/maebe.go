package conv

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

type maebe struct {
	err error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// constant adds t to g as a 4-d input node.
func (m *maebe) constant(g *G.ExprGraph, t *tensor.Dense, name string) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	return G.NewTensor(g, Float, 4, G.WithShape(t.Shape().Clone()...), G.WithName(name), G.WithValue(t))
}

func (m *maebe) conv(input, filter *G.Node, stride int) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	kh, kw := filter.Shape()[2], filter.Shape()[3]
	if retVal, m.err = nnops.Conv2d(input, filter, tensor.Shape{kh, kw}, []int{0, 0}, []int{stride, stride}, []int{1, 1}); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) rectify(input *G.Node) (retVal *G.Node) {
	return m.do(func() (*G.Node, error) { return nnops.Rectify(input) })
}
