// Package compositor renders a completed storyboard into video frames.
//
// Rendering runs on a virtual clock: frame counts are derived from segment
// durations and the configured frame rate, never from wall time, so the same
// storyboard always produces the same frames. Each frame cover-fits the
// segment still onto the canvas, applies the segment's Ken Burns transform,
// and burns the caption in before handing the RGBA pixels to a frame sink.
package compositor
