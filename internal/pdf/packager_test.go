package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testRaster(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPackageRasterPortraitPageSize(t *testing.T) {
	raster := testRaster(t, 794, 1123)

	out, err := PackageRaster(raster)
	if err != nil {
		t.Fatalf("PackageRaster: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}

	// 794px * 0.75 = 595.50pt, 1123px * 0.75 = 842.25pt
	if !bytes.Contains(out, []byte("595.50")) || !bytes.Contains(out, []byte("842.25")) {
		t.Error("portrait MediaBox does not match the 794x1123 canvas")
	}
}

func TestPackageRasterRejectsGarbage(t *testing.T) {
	if _, err := PackageRaster([]byte("not a png")); err == nil {
		t.Fatal("expected error for invalid raster bytes")
	}
}
