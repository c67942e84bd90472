package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gorgonia/saak"
	"github.com/gorgonia/saak/dataset"
	"gorgonia.org/tensor"
)

func main() {
	const (
		size      = 32
		trainSize = 2000
		testSize  = 1000
	)

	conf := saak.DefaultConfig()
	conf.Energy = 0.97
	conf.Logger = log.New(os.Stderr, "saak ", log.Ltime)

	train, _, err := dataset.Glyphs(trainSize, size, 1337)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	model, outputs, err := saak.Encode(train, conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	features, err := saak.AssembleFeatures(outputs)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	dim := saak.FeatureDim(outputs)
	if features.Shape()[1] != dim {
		log.Fatalf("feature matrix is %v. Expected %d features", features.Shape(), dim)
	}
	log.Printf("final feature dimension is %d", dim)

	stats := saak.MakeStatistics(model, train.Shape(), outputs)
	if err := stats.Dump("stages.csv"); err != nil {
		log.Fatalf("%+v", err)
	}
	if err := os.WriteFile("stages.dot", []byte(model.ToDot()), 0644); err != nil {
		log.Fatalf("%+v", err)
	}

	recon, err := saak.Reconstruct(outputs, model.Kernels(), conf.Convolver)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("reconstruction from stage %d: %v, mean squared error %.6f", len(outputs)-2, recon.Shape(), mse(train, recon))

	if err := model.Save("saak.model"); err != nil {
		log.Fatalf("%+v", err)
	}

	log.Printf("-----------------start testing-------------")
	test, _, err := dataset.Glyphs(testSize, size, 42)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	loaded, err := saak.Load("saak.model")
	if err != nil {
		log.Fatalf("%+v", err)
	}
	testOutputs, err := loaded.Infer(test, conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	testFeatures, err := saak.AssembleFeatures(testOutputs)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	if testFeatures.Shape()[1] != dim {
		log.Fatalf("test feature matrix is %v. Expected %d features", testFeatures.Shape(), dim)
	}
	fmt.Println(testFeatures.Shape())
}

func mse(a, b *tensor.Dense) float64 {
	x, y := a.Data().([]float32), b.Data().([]float32)
	var sum float64
	for i := range x {
		d := float64(x[i] - y[i])
		sum += d * d
	}
	return sum / float64(len(x))
}
