package saak

import (
	"io"
	"log"

	"github.com/gorgonia/saak/conv"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// PatchExtent is the side of the square, non-overlapping patches every stage works on.
// It is also the stride of every convolution.
const PatchExtent = 2

// Config configures a Saak transform.
type Config struct {
	Energy float64 // cumulative explained variance to retain, in (0, 1]

	Decomposer Decomposer
	Convolver  Convolver

	// Logger receives progress messages. A nil Logger is silent.
	Logger *log.Logger
}

// DefaultConfig keeps every principal component and runs the convolutions on a gorgonia graph.
func DefaultConfig() Config {
	return Config{
		Energy:     1.0,
		Decomposer: SVD{},
		Convolver:  conv.Graph{},
	}
}

func (conf Config) IsValid() bool {
	return conf.Energy > 0 &&
		conf.Energy <= 1 &&
		conf.Decomposer != nil &&
		conf.Convolver != nil
}

func (conf Config) logger() *log.Logger {
	if conf.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return conf.Logger
}

// Decomposer finds the principal axes of mean-centred data.
//
// Decompose takes a P×D matrix of centred observations and returns the components as the rows
// of a matrix, ordered by descending variance, together with the variance along each.
// At most min(P, D) components are returned.
type Decomposer interface {
	Decompose(centred *mat.Dense) (components *mat.Dense, variances []float64, err error)
}

// Convolver is a 2D convolution engine working on NCHW float32 tensors with no padding.
//
// Kernels for Conv2d are shaped (K, C, kh, kw). Kernels for ConvTranspose2d are shaped
// (K, C, kh, kw) as well, mapping K input channels back to C output channels.
type Convolver interface {
	Conv2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error)
	ConvReLU2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error)
	ConvTranspose2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error)
}

// Stage holds everything a trained stage needs to be applied to new data.
type Stage struct {
	Kernels *tensor.Dense // (2k, C, 2, 2) sign-augmented filters
	Mean    *tensor.Dense // (C, 2, 2) feature mean

	Retained int     // principal components kept before the DC component was dropped
	Energy   float64 // fraction of variance captured by the AC components
}

// InputChannels is the number of channels the stage expects.
func (s Stage) InputChannels() int { return s.Kernels.Shape()[1] }

// OutputChannels is the number of channels the stage produces: the AC responses and the DC channel.
func (s Stage) OutputChannels() int { return s.Kernels.Shape()[0] + 1 }

// Augmented is the result of fitting a sign-augmented PCA filter bank on a batch of patches.
type Augmented struct {
	Filters *tensor.Dense // (2k, D)
	Mean    *tensor.Dense // (D)

	Retained int
	Energy   float64
}
