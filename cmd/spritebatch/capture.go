package main

import (
	"context"
	"image/png"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/spritebatch/report"
	"github.com/Noofbiz/spritebatch/webcam"
	"github.com/Noofbiz/spritebatch/webcam/gocvcam"
)

type captureConfig struct {
	Device        int
	Size          int
	DisplayWidth  int
	DisplayHeight int
	Out           string
	Hist          string
	Timeout       time.Duration
}

func newCaptureCmd() *cobra.Command {
	cfg := captureConfig{
		Size:          224,
		DisplayWidth:  224,
		DisplayHeight: 224,
		Timeout:       30 * time.Second,
	}
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one normalized frame from a local camera",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Device, "device", 0, "camera index")
	f.IntVar(&cfg.Size, "size", cfg.Size, "resize the square crop to this size (0 = keep)")
	f.IntVar(&cfg.DisplayWidth, "display-width", cfg.DisplayWidth, "initial display surface width")
	f.IntVar(&cfg.DisplayHeight, "display-height", cfg.DisplayHeight, "initial display surface height")
	f.StringVar(&cfg.Out, "out", "", "if set, write the captured crop as PNG")
	f.StringVar(&cfg.Hist, "hist", "", "if set, write a histogram of the normalized values")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "give up waiting for the camera after this long")
	return cmd
}

func runCapture(ctx context.Context, cfg captureConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	setupCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		setupCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cam := webcam.New(gocvcam.Opener(cfg.Device), cfg.DisplayWidth, cfg.DisplayHeight, webcam.Options{TargetSize: cfg.Size})
	defer cam.Close()

	if err := cam.Setup(setupCtx); err != nil {
		return errors.Wrapf(err, "set up camera %d", cfg.Device)
	}
	vw, vh := cam.VideoSize()
	dw, dh := cam.DisplaySize()
	klog.Infof("camera %d ready: video %dx%d, display %dx%d", cfg.Device, vw, vh, dw, dh)

	frame, err := cam.CaptureFrame()
	if err != nil {
		return err
	}
	klog.Infof("captured frame: %s", frame.ToGomlxTensor().Shape())

	if cfg.Out != "" {
		if err := writePNG(cfg.Out, frame); err != nil {
			return err
		}
		klog.Infof("wrote %s", cfg.Out)
	}
	if cfg.Hist != "" {
		if err := report.PlotFrameHistogram(frame, 32, cfg.Hist); err != nil {
			return errors.Wrap(err, "plot histogram")
		}
		klog.Infof("wrote %s", cfg.Hist)
	}
	return nil
}

func writePNG(path string, frame *webcam.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if err := png.Encode(f, frame.Image()); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
