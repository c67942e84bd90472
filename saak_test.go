package saak

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorgonia/saak/conv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func randImages(r *rand.Rand, shape ...int) *tensor.Dense {
	backing := make([]float32, tensor.Shape(shape).TotalSize())
	for i := range backing {
		backing[i] = r.Float32()
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

func directConf() Config {
	conf := DefaultConfig()
	conf.Convolver = conv.Direct{}
	return conf
}

// countingConvolver counts how many convolutions were requested.
type countingConvolver struct {
	conv.Direct
	calls int
}

func (c *countingConvolver) Conv2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	c.calls++
	return c.Direct.Conv2d(x, w, stride)
}

func (c *countingConvolver) ConvReLU2d(x, w *tensor.Dense, stride int) (*tensor.Dense, error) {
	c.calls++
	return c.Direct.ConvReLU2d(x, w, stride)
}

var numStagesCases = []struct {
	extent, stages int
	err            bool
}{
	{1, 0, true},
	{2, 1, false},
	{3, 0, true},
	{4, 2, false},
	{12, 0, true},
	{32, 5, false},
	{64, 6, false},
}

func TestNumStages(t *testing.T) {
	for _, c := range numStagesCases {
		n, err := NumStages(c.extent)
		if c.err {
			if err == nil {
				t.Errorf("Expected NumStages(%d) to fail", c.extent)
			}
			continue
		}
		if err != nil || n != c.stages {
			t.Errorf("Expected NumStages(%d) to be %d. Got %d (%v) instead", c.extent, c.stages, n, err)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	if !DefaultConfig().IsValid() {
		t.Errorf("Expected Default Config to be correct")
	}
	conf := DefaultConfig()
	conf.Energy = 0
	if conf.IsValid() {
		t.Errorf("Expected an energy of 0 to be invalid")
	}
	_, _, err := Encode(randImages(rand.New(rand.NewSource(1)), 2, 1, 4, 4), conf)
	assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(1337))
	images := randImages(r, 5, 1, 8, 8)

	m, outputs, err := Encode(images, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, outputs, 3)
	assert.Len(m.Kernels(), 3)
	assert.Len(m.Means(), 3)

	channels := 1
	extent := 8
	for i, out := range outputs {
		st := m.Stages[i]
		extent /= 2
		s := out.Shape()
		assert.Equal(channels, st.InputChannels(), "stage %d", i)
		assert.Equal(tensor.Shape{channels, 2, 2}, st.Mean.Shape(), "stage %d", i)
		assert.Equal(st.OutputChannels(), s[1], "stage %d", i)
		assert.Equal(1, s[1]%2, "stage %d should have an odd channel count", i)
		assert.Equal(5, s[0])
		assert.Equal(extent, s[2])
		assert.Equal(extent, s[3])
		channels = s[1]
	}
	// stage 0 sees 80 patches of length 4, so all four components are kept and the DC one dropped.
	assert.Equal(4, m.Stages[0].Retained)
	assert.Equal(tensor.Shape{6, 1, 2, 2}, m.Stages[0].Kernels.Shape())

	features, err := AssembleFeatures(outputs)
	require.NoError(t, err)
	var want int
	for _, out := range outputs {
		s := out.Shape()
		want += ((s[1]-1)/2 + 1) * s[2] * s[3]
	}
	assert.Equal(tensor.Shape{5, want}, features.Shape())
	assert.Equal(want, FeatureDim(outputs))
}

func TestEncode_BadInput(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, shape := range []tensor.Shape{{2, 1, 6, 6}, {2, 1, 4, 8}, {2, 1, 1, 1}} {
		_, _, err := Encode(randImages(r, shape...), directConf())
		var se *ShapeMismatchError
		assert.True(t, errors.As(err, &se), "%v: expected a ShapeMismatchError. Got %v", shape, err)
	}
}

// A batch of identical constant images has no variance: AC vanishes and DC is the scaled mean.
func TestTrainStage_ConstantImages(t *testing.T) {
	backing := make([]float32, 4*4*4)
	for i := range backing {
		backing[i] = 1
	}
	images := tensor.New(tensor.WithShape(4, 1, 4, 4), tensor.WithBacking(backing))

	for _, dec := range []Decomposer{SVD{}, Eigen{}} {
		conf := DefaultConfig()
		conf.Decomposer = dec
		st, out, err := TrainStage(images, conf)
		require.NoError(t, err, "%T", dec)
		s := out.Shape()
		require.Equal(t, tensor.Shape{4, st.OutputChannels(), 2, 2}, s)

		data := out.Data().([]float32)
		k := s[1] - 1
		for b := 0; b < 4; b++ {
			sample := data[b*s[1]*4 : (b+1)*s[1]*4]
			for i, v := range sample[:k*4] {
				assert.InDelta(t, 0, v, 1e-6, "%T: AC value %d of sample %d", dec, i, b)
			}
			for i, v := range sample[k*4:] {
				assert.InDelta(t, 2, v, 1e-6, "%T: DC value %d of sample %d", dec, i, b)
			}
		}
	}
}

func TestTrainStage_DCRescale(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	images := randImages(r, 3, 3, 4, 4)
	_, out, err := TrainStage(images, directConf())
	require.NoError(t, err)

	src := images.Data().([]float32)
	s := out.Shape()
	dc := channels(out, s[1]-1, s[1]).Data().([]float32)
	scale := math.Sqrt(12)
	for b := 0; b < 3; b++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				var sum float64
				for c := 0; c < 3; c++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							sum += float64(src[((b*3+c)*4+2*i+dy)*4+2*j+dx])
						}
					}
				}
				want := sum / 12 * scale
				assert.InDelta(t, want, dc[(b*2+i)*2+j], 1e-5, "sample %d block (%d, %d)", b, i, j)
			}
		}
	}
}

// Rectified responses to both polarities of a component recover the signed projection onto it.
func TestTrainStage_SignAugmentation(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	n, c, h, w := 6, 2, 4, 4
	images := randImages(r, n, c, h, w)
	st, out, err := TrainStage(images, directConf())
	require.NoError(t, err)

	kernels := st.Kernels.Data().([]float32)
	mean := st.Mean.Data().([]float32)
	d := c * 4
	k := st.Kernels.Shape()[0] / 2
	for q := 0; q < k; q++ {
		for j := 0; j < d; j++ {
			assert.Equal(t, kernels[q*d+j], -kernels[(k+q)*d+j], "filter %d is not negated at %d", k+q, j)
		}
	}

	signed, err := SignedConvert(out)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{n, k + 1, h / 2, w / 2}, signed.Shape())
	sd := signed.Data().([]float32)

	src := images.Data().([]float32)
	at := func(b, ch, y, x int) float64 { return float64(src[((b*c+ch)*h+y)*w+x]) }
	for b := 0; b < n; b++ {
		for i := 0; i < h/2; i++ {
			for j := 0; j < w/2; j++ {
				var pm float64
				for ch := 0; ch < c; ch++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							pm += at(b, ch, 2*i+dy, 2*j+dx)
						}
					}
				}
				pm /= float64(d)
				for q := 0; q < k; q++ {
					var proj float64
					for ch := 0; ch < c; ch++ {
						for dy := 0; dy < 2; dy++ {
							for dx := 0; dx < 2; dx++ {
								off := ch*4 + dy*2 + dx
								proj += (at(b, ch, 2*i+dy, 2*j+dx) - pm - float64(mean[off])) * float64(kernels[q*d+off])
							}
						}
					}
					got := sd[((b*(k+1)+1+q)*(h/2)+i)*(w/2)+j]
					assert.InDelta(t, proj, got, 1e-4, "sample %d block (%d, %d) component %d", b, i, j, q)
				}
			}
		}
	}
}

func TestInfer_ReproducesEncode(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	images := randImages(r, 8, 1, 8, 8)
	conf := DefaultConfig()
	m, outputs, err := Encode(images, conf)
	require.NoError(t, err)

	inferred, err := m.Infer(images, conf)
	require.NoError(t, err)
	require.Len(t, inferred, len(outputs))
	for i := range outputs {
		if diff := cmp.Diff(outputs[i].Shape(), inferred[i].Shape()); diff != "" {
			t.Fatalf("stage %d shape (-encode +infer):\n%s", i, diff)
		}
		assert.Equal(t, outputs[i].Data(), inferred[i].Data(), "stage %d", i)
	}
}

func TestInfer_StageCountMismatch(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	images := randImages(r, 4, 1, 8, 8)
	m, _, err := Encode(images, directConf())
	require.NoError(t, err)

	cc := new(countingConvolver)
	conf := directConf()
	conf.Convolver = cc
	_, err = Infer(images, m.Kernels()[:2], m.Means()[:2], conf)
	var se *ShapeMismatchError
	require.True(t, errors.As(err, &se), "expected a ShapeMismatchError. Got %v", err)
	assert.Equal(t, "Infer", se.Op)
	assert.Equal(t, 0, cc.calls, "no convolution should run before the stage count is checked")

	_, err = Infer(images, m.Kernels(), m.Means()[:1], conf)
	assert.True(t, errors.As(err, &se))

	// stages trained on 8×8 inputs cannot be applied to 16×16 ones
	_, err = m.Infer(randImages(r, 1, 1, 16, 16), conf)
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 0, cc.calls)
}

func TestApplyStage_ChannelMismatch(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	st, _, err := TrainStage(randImages(r, 4, 2, 4, 4), directConf())
	require.NoError(t, err)
	_, err = ApplyStage(randImages(r, 4, 3, 4, 4), st, directConf())
	var se *ShapeMismatchError
	assert.True(t, errors.As(err, &se), "expected a ShapeMismatchError. Got %v", err)
}
