// Package webcam wraps a live camera and turns its frames into normalized,
// square image tensors for model inference.
//
// A Webcam goes through Uninitialized -> Requesting -> Ready, or ends in
// Failed if the camera cannot be opened. Failed is terminal: construct a new
// Webcam to try again.
package webcam

import (
	"context"
	"image"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Device is an open camera.
type Device interface {
	// Read blocks until the next frame is available.
	Read() (image.Image, error)
	Close() error
}

// Opener requests a camera at a nominal resolution. The device may deliver a
// different resolution; the first frame tells.
type Opener func(ctx context.Context, width, height int) (Device, error)

// Nominal resolution requested from the camera.
const (
	NominalWidth  = 224
	NominalHeight = 224
)

var (
	// ErrDeviceUnavailable wraps failures to open the camera or read its
	// first frame, including denied access and a missing camera API.
	ErrDeviceUnavailable = errors.New("camera unavailable")

	// ErrNoCameraAPI is returned by Setup when no Opener is available. It
	// matches ErrDeviceUnavailable under errors.Is.
	ErrNoCameraAPI = errors.Wrap(ErrDeviceUnavailable, "no camera access method available")

	// ErrAlreadySetup is returned by Setup on a webcam that is past
	// Uninitialized.
	ErrAlreadySetup = errors.New("webcam setup already started")

	// ErrSetupFailed is returned by Setup after a previous Setup failed.
	ErrSetupFailed = errors.New("webcam setup previously failed")

	// ErrNotReady is returned by Capture before Setup has completed or after
	// Close, and by Setup on a closed Webcam.
	ErrNotReady = errors.New("webcam not ready")
)

// State of a Webcam.
type State int

const (
	Uninitialized State = iota
	Requesting
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Requesting:
		return "requesting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options tune a Webcam. Zero values take defaults.
type Options struct {
	// NominalWidth and NominalHeight are requested from the device.
	NominalWidth  int
	NominalHeight int

	// TargetSize, if positive, resizes the square crop to TargetSize x
	// TargetSize before normalization.
	TargetSize int
}

// Webcam produces normalized frames from a camera.
type Webcam struct {
	open Opener
	opts Options

	mu            sync.Mutex
	state         State
	device        Device
	closed        bool
	displayWidth  int
	displayHeight int
	videoWidth    int
	videoHeight   int
}

// New returns an uninitialized Webcam. displayWidth and displayHeight are the
// initial dimensions of the surface showing the video; Setup adjusts them to
// the camera's aspect ratio.
func New(open Opener, displayWidth, displayHeight int, opts Options) *Webcam {
	if opts.NominalWidth <= 0 {
		opts.NominalWidth = NominalWidth
	}
	if opts.NominalHeight <= 0 {
		opts.NominalHeight = NominalHeight
	}
	return &Webcam{
		open:          open,
		opts:          opts,
		displayWidth:  displayWidth,
		displayHeight: displayHeight,
	}
}

// State returns the current state.
func (w *Webcam) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// DisplaySize returns the display surface dimensions.
func (w *Webcam) DisplaySize() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displayWidth, w.displayHeight
}

// VideoSize returns the true camera dimensions, known once Ready.
func (w *Webcam) VideoSize() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoWidth, w.videoHeight
}

// Setup opens the camera and waits for its first frame, at which point the
// real frame dimensions are known and the display size is adjusted to them.
// It is one-shot: there is no retry, and a failure leaves the Webcam in
// Failed.
func (w *Webcam) Setup(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.Wrap(ErrNotReady, "closed")
	}
	switch w.state {
	case Failed:
		w.mu.Unlock()
		return ErrSetupFailed
	case Requesting, Ready:
		w.mu.Unlock()
		return ErrAlreadySetup
	}
	if w.open == nil {
		w.state = Failed
		w.mu.Unlock()
		return ErrNoCameraAPI
	}
	w.state = Requesting
	w.mu.Unlock()

	dev, first, err := w.openAndWait(ctx)
	if err != nil {
		w.mu.Lock()
		w.state = Failed
		w.mu.Unlock()
		return err
	}

	b := first.Bounds()
	w.mu.Lock()
	if w.closed {
		w.state = Failed
		w.mu.Unlock()
		dev.Close()
		return errors.Wrap(ErrNotReady, "closed during setup")
	}
	w.device = dev
	w.videoWidth, w.videoHeight = b.Dx(), b.Dy()
	w.adjustVideoSizeLocked(b.Dx(), b.Dy())
	w.state = Ready
	dw, dh := w.displayWidth, w.displayHeight
	w.mu.Unlock()

	klog.V(1).Infof("webcam ready: video %dx%d, display %dx%d", b.Dx(), b.Dy(), dw, dh)
	return nil
}

// openAndWait opens the device and reads the first frame, giving up when ctx
// is done. On failure the device, if any, is closed.
func (w *Webcam) openAndWait(ctx context.Context) (Device, image.Image, error) {
	dev, err := w.open(ctx, w.opts.NominalWidth, w.opts.NominalHeight)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrDeviceUnavailable, "open: %v", err)
	}

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := dev.Read()
		done <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		// Close once the pending read returns; devices may not support
		// closing under a blocked read.
		go func() {
			<-done
			dev.Close()
		}()
		return nil, nil, errors.Wrapf(ErrDeviceUnavailable, "waiting for first frame: %v", ctx.Err())
	case r := <-done:
		if r.err == nil && (r.img == nil || r.img.Bounds().Empty()) {
			r.err = errors.New("empty frame")
		}
		if r.err != nil {
			dev.Close()
			return nil, nil, errors.Wrapf(ErrDeviceUnavailable, "first frame: %v", r.err)
		}
		return dev, r.img, nil
	}
}

// AdjustVideoSize resizes the display surface so a video of width x height
// fills it without letterboxing. Landscape (or square) video keeps the
// display height and scales the width; portrait video keeps the width and
// scales the height.
func (w *Webcam) AdjustVideoSize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adjustVideoSizeLocked(width, height)
}

func (w *Webcam) adjustVideoSizeLocked(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	aspect := float64(width) / float64(height)
	if width >= height {
		w.displayWidth = int(aspect * float64(w.displayHeight))
	} else {
		w.displayHeight = int(float64(w.displayWidth) / aspect)
	}
}

// CaptureFrame reads one frame, mirrors it, crops the centered square,
// resizes it if a TargetSize is set, and normalizes it.
func (w *Webcam) CaptureFrame() (*Frame, error) {
	w.mu.Lock()
	dev, state := w.device, w.state
	w.mu.Unlock()
	if state != Ready {
		return nil, errors.Wrapf(ErrNotReady, "state %s", state)
	}
	if dev == nil {
		return nil, errors.Wrap(ErrNotReady, "closed")
	}

	img, err := dev.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read frame")
	}
	return Process(img, w.opts.TargetSize), nil
}

// Capture is CaptureFrame returning a [1, side, side, 3] float32 tensor.
func (w *Webcam) Capture() (*tensors.Tensor, error) {
	f, err := w.CaptureFrame()
	if err != nil {
		return nil, err
	}
	return f.ToGomlxTensor(), nil
}

// Process applies the capture pipeline to a single frame: mirror, center
// crop, optional resize to targetSize, normalize.
func Process(img image.Image, targetSize int) *Frame {
	return Normalize(Resize(MirrorCrop(img), targetSize))
}

// Close releases the camera. Captures fail with ErrNotReady afterwards. A
// Setup still waiting for its first frame closes the device itself and fails.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.device == nil {
		return nil
	}
	err := w.device.Close()
	w.device = nil
	return err
}
