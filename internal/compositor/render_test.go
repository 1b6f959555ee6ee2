package compositor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"storycut/internal/storyboard"
)

// memorySink counts frames and keeps a copy of the last one.
type memorySink struct {
	frames   int
	last     *image.RGBA
	finished bool
}

func (s *memorySink) WriteFrame(frame *image.RGBA) error {
	s.frames++
	s.last = image.NewRGBA(frame.Bounds())
	copy(s.last.Pix, frame.Pix)
	return nil
}

func (s *memorySink) Finish() error {
	s.finished = true
	return nil
}

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, solidImage(64, 64, color.RGBA{R: 200, A: 255})); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return path
}

func TestRenderFrameCountFromDurations(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{R: 255, A: 255}), DurationSeconds: 1.0, Movement: storyboard.MoveZoomIn},
		{Image: solidImage(64, 64, color.RGBA{G: 255, A: 255}), DurationSeconds: 2.0, Movement: storyboard.MoveStatic, Caption: "hello world"},
	}

	sink := &memorySink{}
	if err := renderer.Render(context.Background(), clips, sink, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// 30 + 60 clip frames plus a 15 frame trailing buffer.
	if sink.frames != 105 {
		t.Fatalf("frames = %d, want 105", sink.frames)
	}
	if !sink.finished {
		t.Fatal("sink was not finalized")
	}
	if w, h := renderer.Dimensions(); w != 720 || h != 1280 {
		t.Fatalf("dimensions = %dx%d, want 720x1280", w, h)
	}
}

func TestRenderShortClipGetsOneFrame(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectLandscape, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{B: 255, A: 255}), DurationSeconds: 0.001, Movement: storyboard.MoveStatic},
	}

	sink := &memorySink{}
	if err := renderer.Render(context.Background(), clips, sink, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// 1 clip frame plus the 15 frame trailing buffer.
	if sink.frames != 16 {
		t.Fatalf("frames = %d, want 16", sink.frames)
	}
}

func TestRenderProgressStaysBelowHundredUntilFinish(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{R: 255, A: 255}), DurationSeconds: 1.0, Movement: storyboard.MoveStatic},
	}

	var reports []int
	sink := &memorySink{}
	err := renderer.Render(context.Background(), clips, sink, func(percent int) {
		reports = append(reports, percent)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("no progress reported")
	}
	for i, percent := range reports[:len(reports)-1] {
		if percent >= 100 {
			t.Fatalf("report %d reached %d before finalize", i, percent)
		}
		if i > 0 && percent < reports[i-1] {
			t.Fatalf("progress regressed from %d to %d", reports[i-1], percent)
		}
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Fatalf("final report = %d, want 100", last)
	}
}

func TestRenderHonorsCancellation(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{R: 255, A: 255}), DurationSeconds: 10.0, Movement: storyboard.MoveZoomIn},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	err := renderer.Render(ctx, clips, sink, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if sink.finished {
		t.Fatal("sink should not be finalized after cancellation")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{R: 120, G: 40, B: 200, A: 255}), DurationSeconds: 0.5, Movement: storyboard.MoveZoomIn, Caption: "same every time"},
	}

	first := &memorySink{}
	if err := renderer.Render(context.Background(), clips, first, nil); err != nil {
		t.Fatalf("first render: %v", err)
	}
	second := &memorySink{}
	if err := renderer.Render(context.Background(), clips, second, nil); err != nil {
		t.Fatalf("second render: %v", err)
	}

	if first.frames != second.frames {
		t.Fatalf("frame counts differ: %d vs %d", first.frames, second.frames)
	}
	for i := range first.last.Pix {
		if first.last.Pix[i] != second.last.Pix[i] {
			t.Fatalf("final frames differ at byte %d", i)
		}
	}
}

// indexSink keeps copies of the frames at the requested indices.
type indexSink struct {
	kept map[int]*image.RGBA
	next int
}

func (s *indexSink) WriteFrame(frame *image.RGBA) error {
	if _, ok := s.kept[s.next]; ok {
		cp := image.NewRGBA(frame.Bounds())
		copy(cp.Pix, frame.Pix)
		s.kept[s.next] = cp
	}
	s.next++
	return nil
}

func (s *indexSink) Finish() error { return nil }

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	return img
}

func TestRenderTrailingBufferShowsFullMovement(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	img := gradientImage(64, 64)
	clips := []Clip{
		{Image: img, DurationSeconds: 1.0, Movement: storyboard.MoveZoomIn, Caption: "the end"},
	}

	// 30 clip frames, so the trailing buffer starts at index 30.
	sink := &indexSink{kept: map[int]*image.RGBA{29: nil, 30: nil}}
	if err := renderer.Render(context.Background(), clips, sink, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	captions, err := newCaptionRenderer(renderer.width, renderer.height)
	if err != nil {
		t.Fatalf("caption renderer: %v", err)
	}
	full := image.NewRGBA(image.Rect(0, 0, renderer.width, renderer.height))
	drawFrame(full, img, transformAt(storyboard.MoveZoomIn, 1))
	captions.burnIn(full, "the end")

	if !bytes.Equal(sink.kept[30].Pix, full.Pix) {
		t.Fatal("trailing buffer frame is not the clip at full movement progress")
	}
	if bytes.Equal(sink.kept[29].Pix, full.Pix) {
		t.Fatal("movement reached full progress before the trailing buffer")
	}
}

func TestRenderStillsOnePerClip(t *testing.T) {
	renderer := NewRenderer(storyboard.AspectPortrait, 30, nil)
	clips := []Clip{
		{Image: solidImage(64, 64, color.RGBA{R: 255, A: 255}), DurationSeconds: 2.0, Movement: storyboard.MoveZoomIn, Caption: "first"},
		{Image: solidImage(64, 64, color.RGBA{G: 255, A: 255}), DurationSeconds: 3.0, Movement: storyboard.MovePanLeft, Caption: "second"},
		{Image: solidImage(64, 64, color.RGBA{B: 255, A: 255}), DurationSeconds: 1.0, Movement: storyboard.MoveStatic},
	}

	sink := &memorySink{}
	if err := renderer.RenderStills(context.Background(), clips, sink); err != nil {
		t.Fatalf("RenderStills: %v", err)
	}
	if sink.frames != 3 {
		t.Fatalf("frames = %d, want 3", sink.frames)
	}
}

func TestBuildTimelineLoadsCompletedSegments(t *testing.T) {
	dir := t.TempDir()
	imagePath := writeTestImage(t, dir, "seg0.png")

	segments := []storyboard.Segment{
		{
			Position:        0,
			Status:          storyboard.StatusCompleted,
			ImagePath:       imagePath,
			DurationSeconds: 2.5,
			CameraMovement:  storyboard.MoveZoomIn,
			Text:            "hello",
		},
	}

	clips, err := BuildTimeline(segments)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	if clips[0].DurationSeconds != 2.5 || clips[0].Caption != "hello" {
		t.Fatalf("clip not populated from segment: %+v", clips[0])
	}
}

func TestBuildTimelineRejectsIncompleteSegment(t *testing.T) {
	segments := []storyboard.Segment{
		{Position: 0, Status: storyboard.StatusFailed, DurationSeconds: 2.0},
	}
	if _, err := BuildTimeline(segments); err == nil {
		t.Fatal("expected error for failed segment")
	}

	if _, err := BuildTimeline(nil); err == nil {
		t.Fatal("expected error for empty storyboard")
	}
}

func TestStillsSinkWritesNumberedFiles(t *testing.T) {
	dir := t.TempDir()
	sink := &StillsSink{Dir: filepath.Join(dir, "stills")}

	frame := image.NewRGBA(image.Rect(0, 0, 32, 32))
	if err := sink.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := sink.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := sink.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	for _, name := range []string{"still_000.png", "still_001.png"} {
		if _, err := os.Stat(filepath.Join(dir, "stills", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}
