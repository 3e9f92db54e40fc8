package datasets

import (
	"math"

	"github.com/pkg/errors"
)

// This package loads the sprited MNIST digits used by the in-browser model
// builder demos and serves shuffled mini-batches from them.
//
// The dataset ships as two resources:
//
//   - an atlas PNG, one digit per atlas row (784 grayscale pixels each),
//     NumDatasetElements rows in total;
//   - a raw label blob, NumClasses one-hot bytes per digit, in the same order.
//
// Layout and intended usage:
//
// MnistData
//   - Load fetches both resources concurrently and decodes the atlas into a
//     flat float32 buffer (values in [0,1]).
//   - The first NumTrainElements digits form the train partition, the rest
//     the test partition. Each partition owns a fixed shuffle permutation and
//     a cursor that wraps around it indefinitely.
//   - NextTrainBatch / NextTestBatch copy rows into a Batch owned by the
//     caller. Batches convert to gomlx tensors with ToGomlxTensors.

// Default dataset constants for the sprited MNIST atlas.
const (
	ImageSize          = 784
	NumClasses         = 10
	NumDatasetElements = 65000

	// TrainTestRatio is the fraction of the atlas used for training.
	TrainTestRatio = 5.0 / 6.0

	// DecodeChunkRows is the number of atlas rows converted per chunk.
	DecodeChunkRows = 5000

	ImagesSpritePath = "https://storage.googleapis.com/learnjs-data/model-builder/mnist_images.png"
	LabelsPath       = "https://storage.googleapis.com/learnjs-data/model-builder/mnist_labels_uint8"
)

var (
	// ErrNotLoaded is returned by batch requests made before a successful Load.
	ErrNotLoaded = errors.New("dataset not loaded")

	// ErrInvalidBatchSize is returned for batch sizes below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrResourceUnavailable wraps any failure to retrieve the atlas or labels.
	ErrResourceUnavailable = errors.New("dataset resource unavailable")

	// ErrMalformedResource is returned when a fetched resource is too short or
	// cannot be decoded.
	ErrMalformedResource = errors.New("malformed dataset resource")
)

// Config holds the dataset geometry and resource locations. Zero fields are
// replaced by the package defaults in NewMnistData.
type Config struct {
	// ImageSize is the number of pixels per example (one atlas row).
	ImageSize int

	// NumClasses is the one-hot label width.
	NumClasses int

	// NumElements is the total number of examples in the atlas.
	NumElements int

	// TrainTestRatio in (0,1). Train gets floor(ratio * NumElements) examples.
	TrainTestRatio float64

	// ImagesURL and LabelsURL locate the atlas and the label blob. Plain
	// filesystem paths and file:// URLs are read from disk.
	ImagesURL string
	LabelsURL string

	// ChunkRows bounds how many atlas rows are converted per chunk.
	ChunkRows int

	// Seed for the shuffle permutations. Zero means time-based.
	Seed int64

	// Fetcher retrieves the resources. Defaults to an HTTPFetcher, wrapped in
	// a CachingFetcher when CacheDir is set.
	Fetcher Fetcher

	// CacheDir, if set, keeps downloaded resources on disk between runs.
	CacheDir string
}

// DefaultConfig returns the configuration of the published MNIST sprite.
func DefaultConfig() Config {
	return Config{
		ImageSize:      ImageSize,
		NumClasses:     NumClasses,
		NumElements:    NumDatasetElements,
		TrainTestRatio: TrainTestRatio,
		ImagesURL:      ImagesSpritePath,
		LabelsURL:      LabelsPath,
		ChunkRows:      DecodeChunkRows,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ImageSize == 0 {
		c.ImageSize = def.ImageSize
	}
	if c.NumClasses == 0 {
		c.NumClasses = def.NumClasses
	}
	if c.NumElements == 0 {
		c.NumElements = def.NumElements
	}
	if c.TrainTestRatio == 0 {
		c.TrainTestRatio = def.TrainTestRatio
	}
	if c.ImagesURL == "" {
		c.ImagesURL = def.ImagesURL
	}
	if c.LabelsURL == "" {
		c.LabelsURL = def.LabelsURL
	}
	if c.ChunkRows == 0 {
		c.ChunkRows = def.ChunkRows
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.ImageSize < 1:
		return errors.Errorf("image size must be positive, got %d", c.ImageSize)
	case c.NumClasses < 1:
		return errors.Errorf("number of classes must be positive, got %d", c.NumClasses)
	case c.NumElements < 2:
		return errors.Errorf("dataset needs at least 2 elements, got %d", c.NumElements)
	case !(c.TrainTestRatio > 0 && c.TrainTestRatio < 1):
		return errors.Errorf("train/test ratio must be in (0,1), got %v", c.TrainTestRatio)
	case c.ChunkRows < 1:
		return errors.Errorf("chunk rows must be positive, got %d", c.ChunkRows)
	}
	train, test := c.Split()
	if train < 1 || test < 1 {
		return errors.Errorf("ratio %v leaves an empty partition (train=%d test=%d)", c.TrainTestRatio, train, test)
	}
	return nil
}

// Split returns the train and test partition sizes.
func (c Config) Split() (train, test int) {
	train = int(math.Floor(c.TrainTestRatio * float64(c.NumElements)))
	return train, c.NumElements - train
}
