package saak

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gorgonia.org/tensor"
)

// Statistics summarises a run of the transform, one entry per stage.
type Statistics struct {
	InputShapes  []tensor.Shape
	OutputShapes []tensor.Shape
	Retained     []int
	Filters      []int
	Energy       []float64
}

// MakeStatistics collects the statistics of a model trained on inputs of the given shape
// and the outputs it produced.
func MakeStatistics(m *Model, input tensor.Shape, outputs []*tensor.Dense) Statistics {
	s := Statistics{
		InputShapes:  make([]tensor.Shape, 0, len(m.Stages)),
		OutputShapes: make([]tensor.Shape, 0, len(m.Stages)),
		Retained:     make([]int, 0, len(m.Stages)),
		Filters:      make([]int, 0, len(m.Stages)),
		Energy:       make([]float64, 0, len(m.Stages)),
	}
	for i, st := range m.Stages {
		in, out := input, tensor.Shape(nil)
		if i < len(outputs) {
			out = outputs[i].Shape().Clone()
		}
		if i > 0 && i-1 < len(outputs) {
			in = outputs[i-1].Shape().Clone()
		}
		s.InputShapes = append(s.InputShapes, in)
		s.OutputShapes = append(s.OutputShapes, out)
		s.Retained = append(s.Retained, st.Retained)
		s.Filters = append(s.Filters, st.Kernels.Shape()[0])
		s.Energy = append(s.Energy, st.Energy)
	}
	return s
}

// Dump writes the statistics as CSV, one row per stage.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"stage", "input", "output", "retained", "filters", "energy"}); err != nil {
		return err
	}
	var records [][]string
	for i := range s.Retained {
		records = append(records, []string{
			strconv.Itoa(i),
			shapeString(s.InputShapes[i]),
			shapeString(s.OutputShapes[i]),
			strconv.Itoa(s.Retained[i]),
			strconv.Itoa(s.Filters[i]),
			strconv.FormatFloat(s.Energy[i], 'f', 4, 64),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func shapeString(s tensor.Shape) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%v", s)
}
