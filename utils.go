package saak

import "gorgonia.org/tensor"

// channels copies channels [from, to) of an (N, C, H, W) tensor into a new tensor.
func channels(t *tensor.Dense, from, to int) *tensor.Dense {
	s := t.Shape()
	n, c, hw := s[0], s[1], s[2]*s[3]
	src := t.Data().([]float32)
	retVal := make([]float32, 0, n*(to-from)*hw)
	for b := 0; b < n; b++ {
		retVal = append(retVal, src[(b*c+from)*hw:(b*c+to)*hw]...)
	}
	return tensor.New(tensor.WithShape(n, to-from, s[2], s[3]), tensor.WithBacking(retVal))
}
