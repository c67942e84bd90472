package conv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func randDense(r *rand.Rand, shape ...int) *tensor.Dense {
	backing := make([]float32, tensor.Shape(shape).TotalSize())
	for i := range backing {
		backing[i] = r.Float32()*2 - 1
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

func TestDirect_Conv2d(t *testing.T) {
	// one 1x4x4 image, one averaging filter
	x := tensor.New(tensor.WithShape(1, 1, 4, 4), tensor.WithBacking([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}))
	w := tensor.New(tensor.WithShape(1, 1, 2, 2), tensor.WithBacking([]float32{0.25, 0.25, 0.25, 0.25}))
	out, err := Direct{}.Conv2d(x, w, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{3.5, 5.5, 11.5, 13.5}, out.Data())
}

func TestDirect_ConvReLU2d(t *testing.T) {
	x := tensor.New(tensor.WithShape(1, 1, 2, 4), tensor.WithBacking([]float32{
		1, 1, -1, -1,
		1, 1, -1, -1,
	}))
	w := tensor.New(tensor.WithShape(2, 1, 2, 2), tensor.WithBacking([]float32{
		1, 1, 1, 1,
		-1, -1, -1, -1,
	}))
	out, err := Direct{}.ConvReLU2d(x, w, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 1, 2}, out.Shape())
	assert.Equal(t, []float32{4, 0, 0, 4}, out.Data())
}

func TestGraphMatchesDirect(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	x := randDense(r, 3, 2, 8, 8)
	w := randDense(r, 5, 2, 2, 2)

	for _, rectify := range []bool{false, true} {
		var got, want *tensor.Dense
		var err error
		if rectify {
			got, err = Graph{}.ConvReLU2d(x, w, 2)
			require.NoError(t, err)
			want, err = Direct{}.ConvReLU2d(x, w, 2)
		} else {
			got, err = Graph{}.Conv2d(x, w, 2)
			require.NoError(t, err)
			want, err = Direct{}.Conv2d(x, w, 2)
		}
		require.NoError(t, err)
		require.Equal(t, want.Shape(), got.Shape())
		assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-4, "rectify %t", rectify)
	}
}

// <conv(x, w), y> == <x, convT(y, w)>
func TestConvTransposeIsAdjoint(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	x := randDense(r, 2, 3, 4, 4)
	w := randDense(r, 4, 3, 2, 2)
	y := randDense(r, 2, 4, 2, 2)

	cx, err := Direct{}.Conv2d(x, w, 2)
	require.NoError(t, err)
	ty, err := Graph{}.ConvTranspose2d(y, w, 2)
	require.NoError(t, err)
	require.Equal(t, x.Shape(), ty.Shape())

	var lhs, rhs float64
	for i, v := range cx.Data().([]float32) {
		lhs += float64(v) * float64(y.Data().([]float32)[i])
	}
	for i, v := range x.Data().([]float32) {
		rhs += float64(v) * float64(ty.Data().([]float32)[i])
	}
	assert.InDelta(t, lhs, rhs, 1e-4)
}

func TestShapeErrors(t *testing.T) {
	x := tensor.New(tensor.WithShape(1, 2, 4, 4), tensor.Of(tensor.Float32))
	w := tensor.New(tensor.WithShape(1, 3, 2, 2), tensor.Of(tensor.Float32))
	_, err := Direct{}.Conv2d(x, w, 2)
	assert.Error(t, err)
	_, err = Graph{}.Conv2d(x, w, 2)
	assert.Error(t, err)
	_, err = Direct{}.ConvTranspose2d(x, w, 2)
	assert.Error(t, err)
	_, err = Direct{}.Conv2d(x, tensor.New(tensor.WithShape(1, 2, 2, 2), tensor.Of(tensor.Float32)), 0)
	assert.Error(t, err)
}
