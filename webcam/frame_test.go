package webcam

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// gradient returns a w x h RGBA image where pixel (x,y) has R=x, G=y, B=7.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	return img
}

func TestCenterSquare(t *testing.T) {
	cases := []struct {
		w, h int
		want image.Rectangle
	}{
		{640, 480, image.Rect(80, 0, 560, 480)},
		{480, 640, image.Rect(0, 80, 480, 560)},
		{224, 224, image.Rect(0, 0, 224, 224)},
		{5, 2, image.Rect(1, 0, 3, 2)},
	}
	for _, c := range cases {
		got := CenterSquare(c.w, c.h)
		if got != c.want {
			t.Fatalf("CenterSquare(%d,%d) = %v, want %v", c.w, c.h, got, c.want)
		}
		if got.Dx() != min(c.w, c.h) || got.Dy() != min(c.w, c.h) {
			t.Fatalf("CenterSquare(%d,%d): side should be min(w,h), got %v", c.w, c.h, got.Size())
		}
	}
}

// TestMirrorCrop_640x480 checks the 640x480 scenario: a 480 square taken at
// horizontal offset 80 of the mirrored frame.
func TestMirrorCrop_640x480(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	// Mark source columns by x/4 so every column in the frame is traceable.
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x / 4), G: uint8(y / 2), A: 255})
		}
	}
	out := MirrorCrop(src)
	if out.Bounds() != image.Rect(0, 0, 480, 480) {
		t.Fatalf("unexpected crop bounds %v", out.Bounds())
	}
	// Mirrored column 80 is source column 559; mirrored column 559 is source 80.
	if got := out.RGBAAt(0, 0).R; got != uint8(559/4) {
		t.Fatalf("left edge: expected source column 559, got R=%d", got)
	}
	if got := out.RGBAAt(479, 0).R; got != uint8(80/4) {
		t.Fatalf("right edge: expected source column 80, got R=%d", got)
	}
	if got := out.RGBAAt(10, 479).G; got != uint8(479/2) {
		t.Fatalf("bottom row: expected source row 479, got G=%d", got)
	}
}

func TestMirrorCrop_SmallExact(t *testing.T) {
	src := gradient(4, 2)
	out := MirrorCrop(src)
	// Mirrored columns are 3,2,1,0; center square of width 2 starts at 1.
	var gotR, gotG [][]uint8
	for y := 0; y < 2; y++ {
		var rs, gs []uint8
		for x := 0; x < 2; x++ {
			c := out.RGBAAt(x, y)
			rs = append(rs, c.R)
			gs = append(gs, c.G)
		}
		gotR = append(gotR, rs)
		gotG = append(gotG, gs)
	}
	if diff := cmp.Diff([][]uint8{{2, 1}, {2, 1}}, gotR); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]uint8{{0, 0}, {1, 1}}, gotG); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}

// TestMirrorCrop_OffsetBounds makes sure sub-images with a non-zero origin are
// handled.
func TestMirrorCrop_OffsetBounds(t *testing.T) {
	full := gradient(10, 6)
	sub := full.SubImage(image.Rect(2, 1, 8, 5)).(*image.RGBA) // 6x4
	out := MirrorCrop(sub)
	if out.Bounds().Dx() != 4 {
		t.Fatalf("expected side 4, got %d", out.Bounds().Dx())
	}
	// Source columns 2..7, mirrored 7..2, center 4 of 6 starts at 1: 6,5,4,3.
	for x, want := range []uint8{6, 5, 4, 3} {
		if got := out.RGBAAt(x, 0).R; got != want {
			t.Fatalf("column %d: expected source column %d, got %d", x, want, got)
		}
	}
	if got := out.RGBAAt(0, 0).G; got != 1 {
		t.Fatalf("first row should be source row 1, got %d", got)
	}
}

func TestNormalize_Constants(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0, G: 255, B: 127, A: 255})
	f := Normalize(img)
	r, g, b := f.Pixel(0, 0)
	if r != -1 {
		t.Fatalf("0 should map to -1, got %v", r)
	}
	if want := float32(255)/127 - 1; g != want || math.Abs(float64(g)-1.0079) > 1e-4 {
		t.Fatalf("255 should map to %v (about 1.0079), got %v", want, g)
	}
	if b != 0 {
		t.Fatalf("127 should map to 0, got %v", b)
	}
}

func TestProcess_ShapeAndResize(t *testing.T) {
	src := gradient(64, 48)
	f := Process(src, 0)
	if f.Side != 48 || len(f.Data) != 48*48*3 {
		t.Fatalf("unexpected frame side=%d len=%d", f.Side, len(f.Data))
	}
	f = Process(src, 16)
	if f.Side != 16 || len(f.Data) != 16*16*3 {
		t.Fatalf("resized frame: unexpected side=%d len=%d", f.Side, len(f.Data))
	}
	for _, v := range f.Data {
		if v < -1 || v > 255.0/127-1 {
			t.Fatalf("value %v out of range", v)
		}
	}
	// Blue is constant 7 everywhere so it survives interpolation.
	if _, _, b := f.Pixel(5, 5); b != float32(7)/127-1 {
		t.Fatalf("unexpected blue after resize: %v", b)
	}

	tensor := f.ToGomlxTensor()
	if dims := tensor.Shape().Dimensions; len(dims) != 4 || dims[0] != 1 || dims[1] != 16 || dims[2] != 16 || dims[3] != 3 {
		t.Fatalf("unexpected tensor dims %v", dims)
	}
}

func TestFrame_ImageRoundTrip(t *testing.T) {
	src := gradient(3, 3)
	f := Process(src, 0)
	back := f.Image()
	mirrored := MirrorCrop(src)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if back.RGBAAt(x, y) != mirrored.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d): got %v want %v", x, y, back.RGBAAt(x, y), mirrored.RGBAAt(x, y))
			}
		}
	}
}

func TestToRGBA_ConvertsGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 2))
	g.SetGray(2, 1, color.Gray{Y: 200})
	out := MirrorCrop(g)
	// Side 2, mirrored columns 2,1,0 with center starting at 0: (0,1) is source (2,1).
	if c := out.RGBAAt(0, 1); c.R != 200 || c.G != 200 || c.B != 200 {
		t.Fatalf("unexpected converted pixel %v", c)
	}
}
