package datasets

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// MnistData fetches the sprited MNIST dataset and serves shuffled batches.
// It is safe for concurrent use; batch requests on the same partition are
// serialized.
type MnistData struct {
	cfg Config

	// Fixed at construction from cfg.
	numTrain int
	numTest  int

	mu     sync.Mutex
	loaded bool
	train  *partition
	test   *partition
}

// partition is a contiguous, immutable slice of the dataset plus the sampler
// that walks it.
type partition struct {
	images  []float32
	labels  []uint8
	sampler *Sampler
}

// NewMnistData creates an unloaded dataset. Call Load before requesting
// batches.
func NewMnistData(cfg Config) (*MnistData, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid dataset config")
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Fetcher == nil {
		var f Fetcher = NewHTTPFetcher()
		if cfg.CacheDir != "" {
			f = &CachingFetcher{Dir: cfg.CacheDir, Next: f}
		}
		cfg.Fetcher = f
	}
	d := &MnistData{cfg: cfg}
	d.numTrain, d.numTest = cfg.Split()
	return d, nil
}

// Config returns the effective configuration.
func (d *MnistData) Config() Config { return d.cfg }

// Load fetches the atlas and the labels concurrently, decodes the atlas,
// splits both into train and test partitions and draws a fresh shuffle
// permutation for each. If either fetch fails, Load returns the error and
// leaves the previously loaded state (if any) untouched.
//
// Calling Load again re-fetches everything and resets both cursors.
func (d *MnistData) Load(ctx context.Context) error {
	cfg := d.cfg
	start := time.Now()

	var (
		images []float32
		labels []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := cfg.Fetcher.Fetch(gctx, cfg.ImagesURL)
		if err != nil {
			return errors.Wrap(err, "fetch images")
		}
		images, err = DecodeAtlas(data, cfg.ChunkRows, cfg.NumElements*cfg.ImageSize)
		return errors.Wrap(err, "decode images")
	})
	g.Go(func() error {
		data, err := cfg.Fetcher.Fetch(gctx, cfg.LabelsURL)
		if err != nil {
			return errors.Wrap(err, "fetch labels")
		}
		if want := cfg.NumElements * cfg.NumClasses; len(data) < want {
			return errors.Wrapf(ErrMalformedResource, "labels hold %d bytes, need %d", len(data), want)
		}
		labels = data[:cfg.NumElements*cfg.NumClasses]
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	imageSplit := d.numTrain * cfg.ImageSize
	labelSplit := d.numTrain * cfg.NumClasses
	train := &partition{
		images:  images[:imageSplit:imageSplit],
		labels:  labels[:labelSplit:labelSplit],
		sampler: NewSampler(d.numTrain, rng),
	}
	test := &partition{
		images:  images[imageSplit:],
		labels:  labels[labelSplit:],
		sampler: NewSampler(d.numTest, rng),
	}

	d.mu.Lock()
	d.train, d.test, d.loaded = train, test, true
	d.mu.Unlock()

	klog.V(1).Infof("loaded %d examples (train=%d test=%d, %s of pixels) in %s",
		cfg.NumElements, d.numTrain, d.numTest,
		humanize.Bytes(uint64(len(images)*4)), time.Since(start).Round(time.Millisecond))
	return nil
}

// Loaded reports whether a Load has completed successfully.
func (d *MnistData) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// TrainLen is the number of examples in the train partition.
func (d *MnistData) TrainLen() int { return d.numTrain }

// TestLen is the number of examples in the test partition.
func (d *MnistData) TestLen() int { return d.numTest }

// NextTrainBatch returns the next batchSize train examples in shuffled order.
// batchSize may exceed TrainLen; the order then wraps.
func (d *MnistData) NextTrainBatch(batchSize int) (*Batch, error) {
	return d.nextBatch(batchSize, func() *partition { return d.train })
}

// NextTestBatch returns the next batchSize test examples in shuffled order.
func (d *MnistData) NextTestBatch(batchSize int) (*Batch, error) {
	return d.nextBatch(batchSize, func() *partition { return d.test })
}

// trainCursor and testCursor expose the sampler positions to tests.
func (d *MnistData) trainCursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.train.sampler.Cursor()
}

func (d *MnistData) testCursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.test.sampler.Cursor()
}

func (d *MnistData) nextBatch(batchSize int, which func() *partition) (*Batch, error) {
	if batchSize < 1 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", batchSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil, ErrNotLoaded
	}
	p := which()

	imageSize, numClasses := d.cfg.ImageSize, d.cfg.NumClasses
	b := newBatch(batchSize, imageSize, numClasses)
	for i := range batchSize {
		idx := p.sampler.Next()
		copy(b.Images[i*imageSize:(i+1)*imageSize], p.images[idx*imageSize:(idx+1)*imageSize])
		copy(b.Labels[i*numClasses:(i+1)*numClasses], p.labels[idx*numClasses:(idx+1)*numClasses])
	}
	return b, nil
}
