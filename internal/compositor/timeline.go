package compositor

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"storycut/internal/services"
	"storycut/internal/storyboard"
)

// Clip is one renderable slice of the timeline.
type Clip struct {
	Image           image.Image
	DurationSeconds float64
	Movement        storyboard.CameraMovement
	Caption         string
}

// BuildTimeline loads segment stills and assembles the render timeline.
// Every segment must be completed with a readable image; rendering a partial
// storyboard is refused rather than silently skipping holes.
func BuildTimeline(segments []storyboard.Segment) ([]Clip, error) {
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "compositor", "timeline", "storyboard has no segments", nil)
	}

	clips := make([]Clip, 0, len(segments))
	for _, segment := range segments {
		if segment.Status != storyboard.StatusCompleted || segment.ImagePath == "" {
			return nil, services.Wrap(services.ErrValidation, "compositor", "timeline",
				fmt.Sprintf("segment %d is not ready to render (status %s)", segment.Position, segment.Status), nil)
		}
		img, err := loadImage(segment.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("load segment %d image: %w", segment.Position, err)
		}
		clips = append(clips, Clip{
			Image:           img,
			DurationSeconds: segment.DurationSeconds,
			Movement:        segment.CameraMovement,
			Caption:         segment.Text,
		})
	}
	return clips, nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
