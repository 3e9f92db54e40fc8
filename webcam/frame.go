package webcam

import (
	"image"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"golang.org/x/image/draw"
)

// Normalization maps 8-bit intensities v to v/PixelScale - 1. The scale is
// 127, not 127.5, so 0 maps to -1 and 255 maps to 255/127-1 (about 1.0079).
const PixelScale = 127

// Frame is a single normalized RGB image in HWC layout, values roughly in
// [-1, 1]. As a tensor it has shape [1, Side, Side, 3].
type Frame struct {
	Data []float32
	Side int
}

// ToGomlxTensor returns the frame as a float32 tensor of shape
// [1, Side, Side, 3].
func (f *Frame) ToGomlxTensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(f.Data, 1, f.Side, f.Side, 3)
}

// Pixel returns the normalized RGB values at (x, y).
func (f *Frame) Pixel(x, y int) (r, g, b float32) {
	i := (y*f.Side + x) * 3
	return f.Data[i], f.Data[i+1], f.Data[i+2]
}

// CenterSquare returns the largest square centered in a w x h frame, in frame
// coordinates starting at (0,0).
func CenterSquare(w, h int) image.Rectangle {
	side := min(w, h)
	x0 := (w - side) / 2
	y0 := (h - side) / 2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// MirrorCrop mirrors img horizontally and returns the centered square of the
// mirrored image as a new RGBA image anchored at (0,0).
func MirrorCrop(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sq := CenterSquare(w, h)
	side := sq.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, side, side))

	src := toRGBA(img)
	for y := 0; y < side; y++ {
		sy := b.Min.Y + sq.Min.Y + y
		row := dst.Pix[y*dst.Stride : y*dst.Stride+side*4]
		for x := 0; x < side; x++ {
			// Column x of the mirrored crop is column sq.Min.X+x of the
			// mirrored frame, i.e. column w-1-(sq.Min.X+x) of the source.
			sx := b.Min.X + w - 1 - (sq.Min.X + x)
			off := src.PixOffset(sx, sy)
			copy(row[x*4:x*4+4], src.Pix[off:off+4])
		}
	}
	return dst
}

// Resize scales a square image to size x size. It returns img unchanged when
// size is not positive or already matches.
func Resize(img *image.RGBA, size int) *image.RGBA {
	if size <= 0 || img.Bounds().Dx() == size && img.Bounds().Dy() == size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Normalize converts a square RGBA image to a Frame, scaling each channel
// with v/PixelScale - 1. Alpha is dropped.
func Normalize(img *image.RGBA) *Frame {
	b := img.Bounds()
	side := b.Dx()
	data := make([]float32, side*side*3)
	i := 0
	for y := b.Min.Y; y < b.Min.Y+side; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := 0; x < side; x++ {
			p := img.Pix[off+4*x : off+4*x+3]
			data[i] = float32(p[0])/PixelScale - 1
			data[i+1] = float32(p[1])/PixelScale - 1
			data[i+2] = float32(p[2])/PixelScale - 1
			i += 3
		}
	}
	return &Frame{Data: data, Side: side}
}

// toRGBA returns img as *image.RGBA, converting when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}

// Image converts the frame back to 8-bit RGBA, inverting the normalization.
// Useful for previews.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Side, f.Side))
	for i := 0; i < f.Side*f.Side; i++ {
		for c := 0; c < 3; c++ {
			v := (f.Data[i*3+c] + 1) * PixelScale
			img.Pix[i*4+c] = uint8(min(max(v+0.5, 0), 255))
		}
		img.Pix[i*4+3] = 255
	}
	return img
}
