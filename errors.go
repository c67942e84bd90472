package saak

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var (
	ErrInvalidEnergy = errors.New("energy threshold must be in (0, 1]")
	ErrInvalidConfig = errors.New("invalid config")
)

// ShapeMismatchError is returned whenever an input does not have the shape an operation requires.
type ShapeMismatchError struct {
	Op       string
	Expected string
	Actual   string
}

func (err *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch. Expected %s. Got %s instead", err.Op, err.Expected, err.Actual)
}

// NumericalError is returned when the decomposition cannot produce components from the data.
type NumericalError struct {
	Op     string
	Reason string
}

func (err *NumericalError) Error() string {
	return fmt.Sprintf("%s: %s", err.Op, err.Reason)
}

func shapeErr(op string, expected, actual interface{}) error {
	return errors.WithStack(&ShapeMismatchError{
		Op:       op,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", actual),
	})
}

func numErr(op, format string, args ...interface{}) error {
	return errors.WithStack(&NumericalError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// checkNCHW checks that t is a 4-d tensor of float32s and returns its dimensions.
func checkNCHW(op string, t *tensor.Dense) (n, c, h, w int, err error) {
	if t == nil {
		return 0, 0, 0, 0, shapeErr(op, "(N, C, H, W)", "nil")
	}
	s := t.Shape()
	if s.Dims() != 4 {
		return 0, 0, 0, 0, shapeErr(op, "(N, C, H, W)", s)
	}
	if t.Dtype() != tensor.Float32 {
		return 0, 0, 0, 0, errors.Errorf("%s: expected Float32 tensor. Got %v", op, t.Dtype())
	}
	return s[0], s[1], s[2], s[3], nil
}
