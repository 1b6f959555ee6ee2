package compositor

import "storycut/internal/storyboard"

// Transform is the camera state for one frame: a uniform scale around the
// canvas center plus a horizontal offset in canvas pixels.
type Transform struct {
	Scale   float64
	OffsetX float64
}

// Ken Burns parameters. Zooms travel between rest and zoomed scale, pans
// slide at a fixed overscan, and static frames hold a slight zoom so the
// image never sits dead on the canvas edges.
const (
	restScale   = 1.0
	zoomedScale = 1.25
	panScale    = 1.2
	staticScale = 1.05
	panTravel   = 50.0
)

// transformAt returns the camera transform for a clip at progress t in
// [0, 1].
func transformAt(movement storyboard.CameraMovement, t float64) Transform {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	switch movement {
	case storyboard.MoveZoomIn:
		return Transform{Scale: restScale + (zoomedScale-restScale)*t}
	case storyboard.MoveZoomOut:
		return Transform{Scale: zoomedScale - (zoomedScale-restScale)*t}
	case storyboard.MovePanRight:
		return Transform{Scale: panScale, OffsetX: -panTravel + 2*panTravel*t}
	case storyboard.MovePanLeft:
		return Transform{Scale: panScale, OffsetX: panTravel - 2*panTravel*t}
	default:
		return Transform{Scale: staticScale}
	}
}
