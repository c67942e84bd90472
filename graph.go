package saak

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// ToDot renders the stage topology of the model as a Graphviz digraph.
// Every stage is a node labelled with its kernel shape and captured energy.
func (m *Model) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("Saak"); err != nil {
		panic(err)
	}
	g.SetDir(true)

	prev := "input"
	g.AddNode("Saak", prev, map[string]string{
		"shape": "box",
		"label": strconv.Quote("input"),
	})
	for i, st := range m.Stages {
		id := fmt.Sprintf("stage%d", i)
		label := fmt.Sprintf("stage %d\nin %d ch, out %d ch\nkernels %v\nretained %d, energy %.4f",
			i, st.InputChannels(), st.OutputChannels(), st.Kernels.Shape(), st.Retained, st.Energy)
		g.AddNode("Saak", id, map[string]string{
			"shape": "box",
			"label": strconv.Quote(label),
		})
		g.AddEdge(prev, id, true, nil)
		prev = id
	}
	return g.String()
}
