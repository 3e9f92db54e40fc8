package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// BatchDataset adapts one partition of MnistData to gomlx's train.Dataset.
// Sampling is cyclic, so the dataset never reports io.EOF and Reset has
// nothing to rewind.
type BatchDataset struct {
	name      string
	batchSize int
	next      func(int) (*Batch, error)
}

var _ train.Dataset = (*BatchDataset)(nil)

// TrainDataset yields train batches of batchSize.
func (d *MnistData) TrainDataset(batchSize int) *BatchDataset {
	return &BatchDataset{name: "mnist-train", batchSize: batchSize, next: d.NextTrainBatch}
}

// TestDataset yields test batches of batchSize.
func (d *MnistData) TestDataset(batchSize int) *BatchDataset {
	return &BatchDataset{name: "mnist-test", batchSize: batchSize, next: d.NextTestBatch}
}

// Name implements train.Dataset.
func (ds *BatchDataset) Name() string {
	return fmt.Sprintf("%s [batch %d]", ds.name, ds.batchSize)
}

// Reset implements train.Dataset.
func (ds *BatchDataset) Reset() {}

// Yield implements train.Dataset. The spec is the dataset itself.
func (ds *BatchDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	b, err := ds.next(ds.batchSize)
	if err != nil {
		return nil, nil, nil, err
	}
	images, onehot, err := b.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return ds, []*tensors.Tensor{images}, []*tensors.Tensor{onehot}, nil
}
