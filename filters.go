package saak

import (
	"gorgonia.org/tensor"
)

// ReshapeFilters turns a (K, 4C) filter bank into (K, C, 2, 2) convolution kernels and a
// length-4C mean into a (C, 2, 2) cuboid. The backings are copied.
func ReshapeFilters(bank, mean *tensor.Dense, channels int) (kernels, cuboid *tensor.Dense, err error) {
	d := channels * PatchExtent * PatchExtent
	bs := bank.Shape()
	if bs.Dims() != 2 || bs[1] != d {
		return nil, nil, shapeErr("ReshapeFilters", tensor.Shape{-1, d}, bs)
	}
	if ms := mean.Shape(); ms.TotalSize() != d {
		return nil, nil, shapeErr("ReshapeFilters", tensor.Shape{d}, ms)
	}

	kernels = bank.Clone().(*tensor.Dense)
	if err = kernels.Reshape(bs[0], channels, PatchExtent, PatchExtent); err != nil {
		return nil, nil, err
	}
	cuboid = mean.Clone().(*tensor.Dense)
	if err = cuboid.Reshape(channels, PatchExtent, PatchExtent); err != nil {
		return nil, nil, err
	}
	return kernels, cuboid, nil
}
