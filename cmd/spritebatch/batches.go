package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/spritebatch/datasets"
	"github.com/Noofbiz/spritebatch/report"
)

// batchesConfig holds the batches command settings. It can be read from a
// JSON file; flags given explicitly on the command line override it.
type batchesConfig struct {
	ImagesURL     string        `json:"images_url"`
	LabelsURL     string        `json:"labels_url"`
	CacheDir      string        `json:"cache_dir"`
	BatchSize     int           `json:"batch_size"`
	TestBatchSize int           `json:"test_batch_size"`
	Steps         int           `json:"steps"`
	Seed          int64         `json:"seed"`
	Plot          string        `json:"plot"`
	Timeout       time.Duration `json:"timeout"`
}

func defaultBatchesConfig() batchesConfig {
	return batchesConfig{
		ImagesURL: datasets.ImagesSpritePath,
		LabelsURL: datasets.LabelsPath,
		BatchSize: 64,
		Steps:     10,
		Timeout:   5 * time.Minute,
	}
}

// loadBatchesConfig reads path over the defaults. An empty path returns the
// defaults.
func loadBatchesConfig(path string) (batchesConfig, error) {
	cfg := defaultBatchesConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func newBatchesCmd() *cobra.Command {
	var configPath string
	flagCfg := defaultBatchesConfig()

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Load the sprite dataset and draw shuffled batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBatchesConfig(configPath)
			if err != nil {
				return err
			}
			// Explicit flags win over the file.
			flags := cmd.Flags()
			if flags.Changed("images-url") {
				cfg.ImagesURL = flagCfg.ImagesURL
			}
			if flags.Changed("labels-url") {
				cfg.LabelsURL = flagCfg.LabelsURL
			}
			if flags.Changed("cache-dir") {
				cfg.CacheDir = flagCfg.CacheDir
			}
			if flags.Changed("batch-size") {
				cfg.BatchSize = flagCfg.BatchSize
			}
			if flags.Changed("test-batch-size") {
				cfg.TestBatchSize = flagCfg.TestBatchSize
			}
			if flags.Changed("steps") {
				cfg.Steps = flagCfg.Steps
			}
			if flags.Changed("seed") {
				cfg.Seed = flagCfg.Seed
			}
			if flags.Changed("plot") {
				cfg.Plot = flagCfg.Plot
			}
			if flags.Changed("timeout") {
				cfg.Timeout = flagCfg.Timeout
			}
			return runBatches(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "optional JSON file with batches settings")
	f.StringVar(&flagCfg.ImagesURL, "images-url", flagCfg.ImagesURL, "URL or path of the sprite atlas PNG")
	f.StringVar(&flagCfg.LabelsURL, "labels-url", flagCfg.LabelsURL, "URL or path of the one-hot label blob")
	f.StringVar(&flagCfg.CacheDir, "cache-dir", "", "directory to keep downloaded resources in")
	f.IntVar(&flagCfg.BatchSize, "batch-size", flagCfg.BatchSize, "train batch size")
	f.IntVar(&flagCfg.TestBatchSize, "test-batch-size", 0, "test batch size (0 = same as batch-size)")
	f.IntVar(&flagCfg.Steps, "steps", flagCfg.Steps, "number of train batches to draw")
	f.Int64Var(&flagCfg.Seed, "seed", 0, "shuffle seed (0 = time based)")
	f.StringVar(&flagCfg.Plot, "plot", "", "if set, write a per-class chart of served examples to this path")
	f.DurationVar(&flagCfg.Timeout, "timeout", flagCfg.Timeout, "give up loading after this long")
	return cmd
}

func runBatches(ctx context.Context, cfg batchesConfig) error {
	if cfg.BatchSize < 1 {
		return errors.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.TestBatchSize == 0 {
		cfg.TestBatchSize = cfg.BatchSize
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	data, err := datasets.NewMnistData(datasets.Config{
		ImagesURL: cfg.ImagesURL,
		LabelsURL: cfg.LabelsURL,
		CacheDir:  cfg.CacheDir,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	klog.Infof("loading dataset from %s and %s", cfg.ImagesURL, cfg.LabelsURL)
	if err := data.Load(ctx); err != nil {
		return errors.Wrap(err, "load dataset")
	}
	klog.Infof("dataset loaded in %s: train=%d test=%d", time.Since(start).Round(time.Millisecond), data.TrainLen(), data.TestLen())

	tally := report.NewTally(datasets.NumClasses)
	for step := range cfg.Steps {
		b, err := data.NextTrainBatch(cfg.BatchSize)
		if err != nil {
			return err
		}
		tally.Add("train", b)
		if step == 0 {
			images, labels, err := b.ToGomlxTensors()
			if err != nil {
				return err
			}
			klog.Infof("first train batch: images %s, labels %s", images.Shape(), labels.Shape())
		}
		klog.V(1).Infof("step %d: %s classes=%v", step, b, b.ClassCounts())
	}

	tb, err := data.NextTestBatch(cfg.TestBatchSize)
	if err != nil {
		return err
	}
	tally.Add("test", tb)
	klog.Infof("test batch: %s", tb)
	klog.Infof("served train=%d test=%d examples", tally.Total("train"), tally.Total("test"))

	if cfg.Plot != "" {
		if err := report.PlotClassCounts(tally, "Classes served", cfg.Plot); err != nil {
			return errors.Wrap(err, "plot classes")
		}
		klog.Infof("wrote %s", cfg.Plot)
	}
	return nil
}
