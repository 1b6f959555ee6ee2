package compositor

import (
	"context"
	"image"
	"log/slog"
	"math"

	"storycut/internal/logging"
	"storycut/internal/storyboard"
)

// trailingBufferSeconds holds the final frame a little past the last caption
// so the video does not cut off on the closing word.
const trailingBufferSeconds = 0.5

// ProgressFunc receives render progress as a percentage. It stays below 100
// until the encoder has been finalized.
type ProgressFunc func(percent int)

// Renderer turns a timeline into frames on a virtual clock: frame counts are
// derived from clip durations and the frame rate, never from wall time, so
// output length is deterministic regardless of encode speed.
type Renderer struct {
	frameRate int
	width     int
	height    int
	logger    *slog.Logger
}

// NewRenderer builds a renderer for the given aspect ratio and frame rate.
func NewRenderer(aspect storyboard.AspectRatio, frameRate int, logger *slog.Logger) *Renderer {
	width, height := aspect.Dimensions()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		frameRate: frameRate,
		width:     width,
		height:    height,
		logger:    logger.With(logging.FieldComponent, "compositor"),
	}
}

// Dimensions returns the canvas size in pixels.
func (r *Renderer) Dimensions() (int, int) {
	return r.width, r.height
}

// frameCount converts a duration to a whole number of frames, with a one
// frame floor so no clip vanishes from the timeline.
func (r *Renderer) frameCount(seconds float64) int {
	frames := int(math.Round(seconds * float64(r.frameRate)))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// Render walks the timeline clip by clip, composing Ken Burns frames with
// burned-in captions and streaming them into the sink. A short trailing
// buffer holds the final clip at full movement progress before the sink is
// finalized.
func (r *Renderer) Render(ctx context.Context, clips []Clip, sink FrameSink, progress ProgressFunc) error {
	captions, err := newCaptionRenderer(r.width, r.height)
	if err != nil {
		return err
	}

	totalFrames := r.frameCount(trailingBufferSeconds)
	for _, clip := range clips {
		totalFrames += r.frameCount(clip.DurationSeconds)
	}

	frame := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	written := 0
	report := func() {
		if progress == nil {
			return
		}
		percent := written * 100 / totalFrames
		if percent > 99 {
			percent = 99
		}
		progress(percent)
	}

	for _, clip := range clips {
		frames := r.frameCount(clip.DurationSeconds)
		for i := 0; i < frames; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Elapsed time over duration: progress stays below 1 inside the
			// clip and only the trailing buffer shows the fully-travelled frame.
			t := float64(i) / float64(frames)
			drawFrame(frame, clip.Image, transformAt(clip.Movement, t))
			if clip.Caption != "" {
				captions.burnIn(frame, clip.Caption)
			}
			if err := sink.WriteFrame(frame); err != nil {
				return err
			}
			written++
			report()
		}
	}

	// The trailing buffer holds the final clip at full movement progress.
	if len(clips) > 0 {
		last := clips[len(clips)-1]
		drawFrame(frame, last.Image, transformAt(last.Movement, 1))
		if last.Caption != "" {
			captions.burnIn(frame, last.Caption)
		}
	}
	for i := 0; i < r.frameCount(trailingBufferSeconds); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.WriteFrame(frame); err != nil {
			return err
		}
		written++
		report()
	}

	if err := sink.Finish(); err != nil {
		return err
	}
	if progress != nil {
		progress(100)
	}
	r.logger.Info("render finished", "frames", written, "clips", len(clips))
	return nil
}

// RenderStills composes only the first frame of each clip, captions included.
// It reuses the same drawing path as Render so stills preview the video
// faithfully.
func (r *Renderer) RenderStills(ctx context.Context, clips []Clip, sink FrameSink) error {
	captions, err := newCaptionRenderer(r.width, r.height)
	if err != nil {
		return err
	}

	frame := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return err
		}
		drawFrame(frame, clip.Image, transformAt(clip.Movement, 0))
		if clip.Caption != "" {
			captions.burnIn(frame, clip.Caption)
		}
		if err := sink.WriteFrame(frame); err != nil {
			return err
		}
	}
	r.logger.Info("stills rendered", "clips", len(clips))
	return sink.Finish()
}
