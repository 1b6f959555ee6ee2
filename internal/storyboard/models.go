package storyboard

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a storyboard segment.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusIdle, StatusGenerating, StatusCompleted, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CameraMovement is the Ken Burns motion applied to a segment's still image.
// The values match the wire spellings the generative collaborator emits.
type CameraMovement string

const (
	MoveZoomIn   CameraMovement = "Zoom In"
	MoveZoomOut  CameraMovement = "Zoom Out"
	MovePanRight CameraMovement = "Pan Right"
	MovePanLeft  CameraMovement = "Pan Left"
	MoveStatic   CameraMovement = "Static"
)

// CameraMovements returns the fixed enum in schema order.
func CameraMovements() []CameraMovement {
	return []CameraMovement{MoveZoomIn, MoveZoomOut, MovePanRight, MovePanLeft, MoveStatic}
}

// ParseCameraMovement normalizes a collaborator-supplied movement value.
// Unknown values fall back to Static rather than failing hydration.
func ParseCameraMovement(value string) CameraMovement {
	trimmed := strings.TrimSpace(value)
	for _, movement := range CameraMovements() {
		if strings.EqualFold(trimmed, string(movement)) {
			return movement
		}
	}
	return MoveStatic
}

// Tactic is the short-video technique a segment applies.
type Tactic string

const (
	TacticHook         Tactic = "Visual Hook (0-3s)"
	TacticPacing       Tactic = "Fast Paced Cut"
	TacticBRoll        Tactic = "Contextual B-Roll"
	TacticClimax       Tactic = "Visual Climax"
	TacticTextEmphasis Tactic = "Text Focus"
	TacticAtmosphere   Tactic = "Healing Atmosphere"
)

// Tactics returns the fixed enum in schema order.
func Tactics() []Tactic {
	return []Tactic{TacticHook, TacticPacing, TacticBRoll, TacticClimax, TacticTextEmphasis, TacticAtmosphere}
}

// AspectRatio is the output orientation selection.
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
)

// ParseAspectRatio validates an aspect ratio selection.
func ParseAspectRatio(value string) (AspectRatio, bool) {
	switch AspectRatio(strings.TrimSpace(value)) {
	case AspectPortrait:
		return AspectPortrait, true
	case AspectLandscape:
		return AspectLandscape, true
	default:
		return "", false
	}
}

// Dimensions returns the render resolution for the aspect ratio.
func (a AspectRatio) Dimensions() (width, height int) {
	if a == AspectLandscape {
		return 1280, 720
	}
	return 720, 1280
}

// NoReference marks a segment with no assigned reference asset.
const NoReference = -1

// Segment is a director-authored visual scene spanning one or more cues.
type Segment struct {
	ID              string
	ProjectID       int64
	Position        int
	Text            string
	DurationSeconds float64
	VisualPrompt    string
	CameraMovement  CameraMovement
	ViralReasoning  string
	Tactic          Tactic
	Status          Status
	ImagePath       string
	ErrorMessage    string
	ReferenceIndex  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasReference reports whether a sanitized reference asset is assigned.
func (s Segment) HasReference() bool {
	return s.ReferenceIndex >= 0
}

// EligibleForBatch reports whether the batch scheduler may pick this segment
// up. Completed work is never redone by a batch and in-flight work is never
// doubled; failed and idle segments are both fair game.
func (s Segment) EligibleForBatch() bool {
	return s.Status != StatusCompleted && s.Status != StatusGenerating
}

// ReferenceAsset is a user-supplied grounding image plus the collaborator's
// description of the specific entity it depicts.
type ReferenceAsset struct {
	Data        []byte
	MIMEType    string
	Description string
}

// Project captures the per-project selections that outlive a single command.
type Project struct {
	ID           int64
	Name         string
	SubtitlePath string
	StyleID      string
	AspectRatio  AspectRatio
	Seed         int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
