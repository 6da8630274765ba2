package pdf

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"

	"ecertify/internal/layout"
)

func TestFallbackScreenshotRequestClipsToCanvas(t *testing.T) {
	req := fallbackScreenshotRequest(proto.PageCaptureScreenshotFormatPng, 0)
	if req.Clip == nil {
		t.Fatal("fallback screenshot must clip to the canvas")
	}
	if req.Clip.Width != layout.CanvasWidth || req.Clip.Height != layout.CanvasHeight {
		t.Errorf("clip is %vx%v, want %dx%d", req.Clip.Width, req.Clip.Height, layout.CanvasWidth, layout.CanvasHeight)
	}
	if req.Clip.Scale != 1 {
		t.Errorf("clip scale is %v, want 1", req.Clip.Scale)
	}
	if req.Quality != nil {
		t.Error("png capture must not set jpeg quality")
	}
}

func TestFallbackScreenshotRequestJpegQuality(t *testing.T) {
	req := fallbackScreenshotRequest(proto.PageCaptureScreenshotFormatJpeg, 80)
	if req.Quality == nil || *req.Quality != 80 {
		t.Errorf("jpeg quality not carried, got %v", req.Quality)
	}
}
