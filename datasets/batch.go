package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Batch stores a batch in flat contiguous buffers.
//
//   - Images: Size x ImageSize float32 values in [0,1]
//   - Labels: Size x NumClasses one-hot bytes
type Batch struct {
	Images     []float32
	Labels     []uint8
	Size       int
	ImageSize  int
	NumClasses int
}

func newBatch(size, imageSize, numClasses int) *Batch {
	return &Batch{
		Images:     make([]float32, size*imageSize),
		Labels:     make([]uint8, size*numClasses),
		Size:       size,
		ImageSize:  imageSize,
		NumClasses: numClasses,
	}
}

// Image returns row i of the image matrix. The slice aliases the batch.
func (b *Batch) Image(i int) []float32 {
	return b.Images[i*b.ImageSize : (i+1)*b.ImageSize]
}

// Label returns row i of the label matrix. The slice aliases the batch.
func (b *Batch) Label(i int) []uint8 {
	return b.Labels[i*b.NumClasses : (i+1)*b.NumClasses]
}

// Class returns the index of the hot entry of label row i, or -1 if the row
// is all zeros.
func (b *Batch) Class(i int) int {
	best, class := uint8(0), -1
	for c, v := range b.Label(i) {
		if v > best {
			best, class = v, c
		}
	}
	return class
}

// ClassCounts tallies the classes present in the batch. Rows without a hot
// entry are not counted.
func (b *Batch) ClassCounts() []int {
	counts := make([]int, b.NumClasses)
	for i := range b.Size {
		if c := b.Class(i); c >= 0 {
			counts[c]++
		}
	}
	return counts
}

// String implements fmt.Stringer.
func (b *Batch) String() string {
	return fmt.Sprintf("Batch{images: [%d %d], labels: [%d %d]}", b.Size, b.ImageSize, b.Size, b.NumClasses)
}

// ToGomlxTensors converts the batch to float32 gomlx tensors shaped
// [Size, ImageSize] and [Size, NumClasses].
func (b *Batch) ToGomlxTensors() (images *tensors.Tensor, labels *tensors.Tensor, err error) {
	if b.Size == 0 {
		return nil, nil, errors.New("cannot convert an empty batch")
	}
	if len(b.Images) != b.Size*b.ImageSize || len(b.Labels) != b.Size*b.NumClasses {
		return nil, nil, errors.Errorf("inconsistent batch buffers: %d images and %d labels for %s",
			len(b.Images), len(b.Labels), b)
	}
	floatLabels := make([]float32, len(b.Labels))
	for i, v := range b.Labels {
		floatLabels[i] = float32(v)
	}
	images = tensors.FromFlatDataAndDimensions(b.Images, b.Size, b.ImageSize)
	labels = tensors.FromFlatDataAndDimensions(floatLabels, b.Size, b.NumClasses)
	return images, labels, nil
}
