package compositor

import (
	"math"
	"testing"

	"storycut/internal/storyboard"
)

func TestTransformAtZoomEndpoints(t *testing.T) {
	cases := []struct {
		name     string
		movement storyboard.CameraMovement
		progress float64
		scale    float64
		offsetX  float64
	}{
		{"zoom in start", storyboard.MoveZoomIn, 0, 1.0, 0},
		{"zoom in midpoint", storyboard.MoveZoomIn, 0.5, 1.125, 0},
		{"zoom in end", storyboard.MoveZoomIn, 1, 1.25, 0},
		{"zoom out start", storyboard.MoveZoomOut, 0, 1.25, 0},
		{"zoom out end", storyboard.MoveZoomOut, 1, 1.0, 0},
		{"pan right start", storyboard.MovePanRight, 0, 1.2, -50},
		{"pan right midpoint", storyboard.MovePanRight, 0.5, 1.2, 0},
		{"pan right end", storyboard.MovePanRight, 1, 1.2, 50},
		{"pan left start", storyboard.MovePanLeft, 0, 1.2, 50},
		{"pan left end", storyboard.MovePanLeft, 1, 1.2, -50},
		{"static start", storyboard.MoveStatic, 0, 1.05, 0},
		{"static end", storyboard.MoveStatic, 1, 1.05, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tf := transformAt(tc.movement, tc.progress)
			if math.Abs(tf.Scale-tc.scale) > 1e-9 {
				t.Fatalf("scale = %v, want %v", tf.Scale, tc.scale)
			}
			if math.Abs(tf.OffsetX-tc.offsetX) > 1e-9 {
				t.Fatalf("offsetX = %v, want %v", tf.OffsetX, tc.offsetX)
			}
		})
	}
}

func TestTransformAtClampsProgress(t *testing.T) {
	before := transformAt(storyboard.MoveZoomIn, -0.5)
	if before.Scale != 1.0 {
		t.Fatalf("scale before start = %v, want 1.0", before.Scale)
	}
	after := transformAt(storyboard.MoveZoomIn, 1.5)
	if after.Scale != 1.25 {
		t.Fatalf("scale past end = %v, want 1.25", after.Scale)
	}
}

func TestCoverSizeFillsCanvas(t *testing.T) {
	cases := []struct {
		name                  string
		srcW, srcH            int
		canvasW, canvasH      int
		wantWidth, wantHeight float64
	}{
		{"wide source on portrait canvas", 1600, 900, 720, 1280, 2275.555555555556, 1280},
		{"tall source on portrait canvas", 720, 1280, 720, 1280, 720, 1280},
		{"square source on landscape canvas", 1000, 1000, 1280, 720, 1280, 1280},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := coverSize(tc.srcW, tc.srcH, tc.canvasW, tc.canvasH)
			if math.Abs(w-tc.wantWidth) > 1e-6 || math.Abs(h-tc.wantHeight) > 1e-6 {
				t.Fatalf("coverSize = %v x %v, want %v x %v", w, h, tc.wantWidth, tc.wantHeight)
			}
			if w < float64(tc.canvasW) || h < float64(tc.canvasH) {
				t.Fatalf("cover size %v x %v does not cover %d x %d canvas", w, h, tc.canvasW, tc.canvasH)
			}
		})
	}
}

func TestCaptionWrapRespectsColumn(t *testing.T) {
	renderer, err := newCaptionRenderer(720, 1280)
	if err != nil {
		t.Fatalf("newCaptionRenderer: %v", err)
	}

	lines := renderer.wrap("the quick brown fox jumps over the lazy dog and keeps on running far beyond the fence")
	if len(lines) < 2 {
		t.Fatalf("expected long text to wrap, got %d line(s)", len(lines))
	}

	joined := ""
	for i, line := range lines {
		if line == "" {
			t.Fatalf("line %d is empty", i)
		}
		if i > 0 {
			joined += " "
		}
		joined += line
	}
	if joined != "the quick brown fox jumps over the lazy dog and keeps on running far beyond the fence" {
		t.Fatalf("wrapped lines lost words: %q", joined)
	}
}

func TestCaptionWrapEmptyText(t *testing.T) {
	renderer, err := newCaptionRenderer(720, 1280)
	if err != nil {
		t.Fatalf("newCaptionRenderer: %v", err)
	}
	if lines := renderer.wrap("   "); lines != nil {
		t.Fatalf("expected no lines for blank text, got %v", lines)
	}
}
