// Package gocvcam opens local cameras through OpenCV for the webcam package.
package gocvcam

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/spritebatch/webcam"
)

// device is a gocv.VideoCapture with a reusable frame buffer.
type device struct {
	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// Opener returns a webcam.Opener for the camera with the given index.
func Opener(deviceID int) webcam.Opener {
	return func(ctx context.Context, width, height int) (webcam.Device, error) {
		return Open(ctx, deviceID, width, height)
	}
}

// Open opens camera deviceID and requests width x height frames. The driver
// may pick another resolution.
func Open(ctx context.Context, deviceID, width, height int) (webcam.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "open camera %d", deviceID)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("camera %d did not open", deviceID)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	klog.V(1).Infof("camera %d opened, requested %dx%d, driver reports %.0fx%.0f", deviceID, width, height,
		vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight))

	return &device{cap: vc, mat: gocv.NewMat()}, nil
}

// Read implements webcam.Device.
func (d *device) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cap == nil {
		return nil, errors.New("camera closed")
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, errors.New("no frame from camera")
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}
	return img, nil
}

// Close implements webcam.Device.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cap == nil {
		return nil
	}
	d.mat.Close()
	err := d.cap.Close()
	d.cap = nil
	return err
}
