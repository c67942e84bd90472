package saak

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// array is the on-disk form of a tensor: its shape and its float32 backing.
type array struct {
	Shape []int
	Data  []float32
}

type stageRecord struct {
	Kernels, Mean array
	Retained      int
	Energy        float64
}

func toArray(t *tensor.Dense) array {
	data := t.Data().([]float32)
	cp := make([]float32, len(data))
	copy(cp, data)
	return array{Shape: t.Shape().Clone(), Data: cp}
}

func (a array) dense() (*tensor.Dense, error) {
	if tensor.Shape(a.Shape).TotalSize() != len(a.Data) {
		return nil, shapeErr("decode", tensor.Shape(a.Shape), len(a.Data))
	}
	return tensor.New(tensor.WithShape(a.Shape...), tensor.WithBacking(a.Data)), nil
}

// GobEncode implements gob.GobEncoder.
func (m *Model) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(len(m.Stages)); err != nil {
		return nil, err
	}
	for _, st := range m.Stages {
		rec := stageRecord{
			Kernels:  toArray(st.Kernels),
			Mean:     toArray(st.Mean),
			Retained: st.Retained,
			Energy:   st.Energy,
		}
		if err := enc.Encode(&rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (m *Model) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(p))
	var n int
	if err := dec.Decode(&n); err != nil {
		return err
	}
	m.Stages = make([]Stage, 0, n)
	for i := 0; i < n; i++ {
		var rec stageRecord
		if err := dec.Decode(&rec); err != nil {
			return errors.Wrapf(err, "stage %d", i)
		}
		kernels, err := rec.Kernels.dense()
		if err != nil {
			return err
		}
		mean, err := rec.Mean.dense()
		if err != nil {
			return err
		}
		m.Stages = append(m.Stages, Stage{
			Kernels:  kernels,
			Mean:     mean,
			Retained: rec.Retained,
			Energy:   rec.Energy,
		})
	}
	return nil
}

// EncodeTo writes the model to w.
func (m *Model) EncodeTo(w io.Writer) error {
	return gob.NewEncoder(w).Encode(m)
}

// ReadModel reads a model written by EncodeTo.
func ReadModel(r io.Reader) (*Model, error) {
	m := new(Model)
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}

// Save the model into filename.
func (m *Model) Save(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.EncodeTo(f)
}

// Load a model from filename.
func Load(filename string) (*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ReadModel(f)
}
