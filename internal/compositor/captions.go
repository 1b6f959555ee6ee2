package compositor

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Caption layout constants, all relative to canvas size: the font tracks the
// canvas width and the text block sits near the bottom edge.
const (
	captionFontRatio     = 0.045
	captionLineSpacing   = 1.4
	captionBottomMargin  = 0.15
	captionMaxWidthRatio = 0.85
	captionMinStroke     = 2.0
)

var (
	captionFontOnce sync.Once
	captionFont     *opentype.Font
	captionFontErr  error
)

func loadCaptionFont() (*opentype.Font, error) {
	captionFontOnce.Do(func() {
		captionFont, captionFontErr = opentype.Parse(gobold.TTF)
	})
	return captionFont, captionFontErr
}

type captionRenderer struct {
	face       font.Face
	size       float64
	lineHeight float64
	stroke     int
	canvasW    int
	canvasH    int
}

func newCaptionRenderer(canvasW, canvasH int) (*captionRenderer, error) {
	parsed, err := loadCaptionFont()
	if err != nil {
		return nil, err
	}
	size := captionFontRatio * float64(canvasW)
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	stroke := int(size / 6)
	if stroke < captionMinStroke {
		stroke = captionMinStroke
	}
	return &captionRenderer{
		face:       face,
		size:       size,
		lineHeight: captionLineSpacing * size,
		stroke:     stroke,
		canvasW:    canvasW,
		canvasH:    canvasH,
	}, nil
}

// wrap splits text into lines that fit the caption column using greedy
// word wrapping. A single word wider than the column gets its own line
// rather than being broken mid-word.
func (r *captionRenderer) wrap(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	maxWidth := fixed.I(int(captionMaxWidthRatio * float64(r.canvasW)))

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(r.face, candidate) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

var (
	captionFill   = image.NewUniform(color.White)
	captionStroke = image.NewUniform(color.Black)
	captionShadow = image.NewUniform(color.RGBA{A: 204})
)

// burnIn draws the caption block onto the frame: drop shadow first, then a
// simulated stroke from offset passes, then the white fill.
func (r *captionRenderer) burnIn(dst *image.RGBA, text string) {
	lines := r.wrap(text)
	if len(lines) == 0 {
		return
	}

	lastBaseline := float64(r.canvasH) * (1 - captionBottomMargin)
	for i, line := range lines {
		baseline := lastBaseline - float64(len(lines)-1-i)*r.lineHeight
		width := font.MeasureString(r.face, line)
		x := (fixed.I(r.canvasW) - width) / 2
		y := fixed.I(int(baseline))

		r.drawLine(dst, line, x+fixed.I(2), y+fixed.I(2), captionShadow)
		for dx := -r.stroke; dx <= r.stroke; dx += r.stroke {
			for dy := -r.stroke; dy <= r.stroke; dy += r.stroke {
				if dx == 0 && dy == 0 {
					continue
				}
				r.drawLine(dst, line, x+fixed.I(dx), y+fixed.I(dy), captionStroke)
			}
		}
		r.drawLine(dst, line, x, y, captionFill)
	}
}

func (r *captionRenderer) drawLine(dst *image.RGBA, line string, x, y fixed.Int26_6, src *image.Uniform) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: r.face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	drawer.DrawString(line)
}
