package datasets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// atlasPNG encodes a gray atlas of width imageSize and n rows where every
// pixel of row y has intensity y%256.
func atlasPNG(t *testing.T, imageSize, n int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, imageSize, n))
	for y := 0; y < n; y++ {
		for x := 0; x < imageSize; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode atlas: %v", err)
	}
	return buf.Bytes()
}

// oneHotLabels returns n one-hot rows where row y has class y%numClasses.
func oneHotLabels(n, numClasses int) []byte {
	out := make([]byte, n*numClasses)
	for y := 0; y < n; y++ {
		out[y*numClasses+y%numClasses] = 1
	}
	return out
}

// testServer serves an atlas at /images.png and labels at /labels. Requests
// to any other path get a 404. The returned counter tracks requests.
func testServer(t *testing.T, atlas, labels []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/images.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(atlas)
	})
	mux.HandleFunc("/labels", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(labels)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

// smallConfig describes a 60-element dataset of 4-pixel images and 3 classes.
func smallConfig(srv *httptest.Server) Config {
	return Config{
		ImageSize:      4,
		NumClasses:     3,
		NumElements:    60,
		TrainTestRatio: 5.0 / 6.0,
		ImagesURL:      srv.URL + "/images.png",
		LabelsURL:      srv.URL + "/labels",
		ChunkRows:      7,
		Seed:           42,
		Fetcher:        &HTTPFetcher{Client: srv.Client()},
	}
}
