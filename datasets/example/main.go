package main

// Example command that loads the sprited MNIST dataset, draws one train and
// one test batch, and converts them to gomlx tensors.
//
// Usage:
//   go run ./datasets/example
//
// The atlas is about 10MB. Pass -cache-dir to keep it between runs.

import (
	"context"
	"flag"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/Noofbiz/spritebatch/datasets"
)

func main() {
	klog.InitFlags(nil)
	cacheDir := flag.String("cache-dir", "", "directory to cache the downloaded atlas and labels in")
	batchSize := flag.Int("batch-size", 8, "number of examples per batch")
	flag.Parse()
	defer klog.Flush()

	data, err := datasets.NewMnistData(datasets.Config{CacheDir: *cacheDir})
	if err != nil {
		klog.Fatalf("failed to create dataset: %v", err)
	}
	fmt.Printf("Loading %s\n", datasets.ImagesSpritePath)
	if err := data.Load(context.Background()); err != nil {
		klog.Fatalf("failed to load dataset: %v", err)
	}
	fmt.Printf("Train examples: %d, test examples: %d\n", data.TrainLen(), data.TestLen())

	train, err := data.NextTrainBatch(*batchSize)
	if err != nil {
		klog.Fatalf("failed to build train batch: %v", err)
	}
	xs, labels, err := train.ToGomlxTensors()
	if err != nil {
		klog.Fatalf("failed to convert train batch to gomlx tensors: %v", err)
	}
	fmt.Printf("Train batch: xs=%s labels=%s\n", xs.Shape(), labels.Shape())
	for i := range train.Size {
		fmt.Printf("  example %d: class %d\n", i, train.Class(i))
	}

	test, err := data.NextTestBatch(*batchSize)
	if err != nil {
		klog.Fatalf("failed to build test batch: %v", err)
	}
	fmt.Printf("Test batch: %s, classes %v\n", test, test.ClassCounts())
}
