package datasets

import (
	"bytes"
	"image"
	"image/color"
	_ "image/png"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// DecodeAtlas decodes a sprite atlas and returns its first limit pixels,
// row-major, as intensities normalized to [0,1]. Only the red channel is read
// since the atlas is grayscale.
//
// Conversion runs over chunks of chunkRows atlas rows so the working set per
// goroutine stays bounded.
func DecodeAtlas(data []byte, chunkRows, limit int) ([]float32, error) {
	if chunkRows < 1 {
		return nil, errors.Errorf("chunk rows must be positive, got %d", chunkRows)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedResource, "decode atlas: %v", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width*height < limit {
		return nil, errors.Wrapf(ErrMalformedResource,
			"atlas %dx%d holds %d pixels, need %d", width, height, width*height, limit)
	}
	klog.V(2).Infof("decoding %s atlas %dx%d in chunks of %d rows", format, width, height, chunkRows)

	out := make([]float32, limit)
	rows := (limit + width - 1) / width

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < rows; start += chunkRows {
		end := min(start+chunkRows, rows)
		g.Go(func() error {
			decodeRows(img, out, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeRows writes atlas rows [start, end) into out, stopping at len(out).
func decodeRows(img image.Image, out []float32, start, end int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	for y := start; y < end; y++ {
		base := y * width
		n := min(width, len(out)-base)
		if n <= 0 {
			return
		}
		row := out[base : base+n]
		sy := bounds.Min.Y + y
		switch src := img.(type) {
		case *image.Gray:
			off := src.PixOffset(bounds.Min.X, sy)
			for x := range row {
				row[x] = float32(src.Pix[off+x]) / 255
			}
		case *image.NRGBA:
			off := src.PixOffset(bounds.Min.X, sy)
			for x := range row {
				row[x] = float32(src.Pix[off+4*x]) / 255
			}
		case *image.RGBA:
			off := src.PixOffset(bounds.Min.X, sy)
			for x := range row {
				row[x] = float32(src.Pix[off+4*x]) / 255
			}
		default:
			// Straight alpha, as a canvas reports it.
			for x := range row {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, sy)).(color.NRGBA)
				row[x] = float32(c.R) / 255
			}
		}
	}
}
