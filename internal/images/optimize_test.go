package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFitInside(t *testing.T) {
	cases := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{100, 100, 720, 1280, 100, 100},
		{1440, 2560, 720, 1280, 720, 1280},
		{1600, 800, 800, 600, 800, 400},
		{600, 1200, 800, 600, 300, 600},
		{720, 1280, 720, 1280, 720, 1280},
	}
	for _, tc := range cases {
		w, h := fitInside(tc.w, tc.h, tc.maxW, tc.maxH)
		if w != tc.wantW || h != tc.wantH {
			t.Errorf("fitInside(%d, %d, %d, %d) = %dx%d, want %dx%d",
				tc.w, tc.h, tc.maxW, tc.maxH, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestOptimizeResizesToProfile(t *testing.T) {
	p := DefaultProfiles()[ProfileDefault]
	out, err := Optimize(pngBytes(t, 1600, 400), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected jpeg output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 200 {
		t.Errorf("expected 800x200, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestOptimizeDoesNotUpscale(t *testing.T) {
	p := DefaultProfiles()[ProfileScreenshot]
	out, err := Optimize(pngBytes(t, 50, 80), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected jpeg output: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 80 {
		t.Errorf("expected 50x80, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestOptimizePNGProfile(t *testing.T) {
	p := Profile{Name: "lossless", MaxWidth: 10, MaxHeight: 10, Fit: FitInside, Format: "png", Quality: 100}
	out, err := Optimize(pngBytes(t, 20, 20), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected png output: %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("expected 10x10, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestOptimizeRejectsGarbage(t *testing.T) {
	if _, err := Optimize([]byte("not an image"), DefaultProfiles()[ProfileDefault]); err == nil {
		t.Error("expected decode error")
	}
}
