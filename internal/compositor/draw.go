package compositor

import (
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// coverSize computes the base dimensions that cover the canvas while
// preserving the source aspect ratio, the way CSS object-fit: cover does.
func coverSize(srcW, srcH, canvasW, canvasH int) (float64, float64) {
	srcRatio := float64(srcW) / float64(srcH)
	canvasRatio := float64(canvasW) / float64(canvasH)
	if srcRatio > canvasRatio {
		h := float64(canvasH)
		return h * srcRatio, h
	}
	w := float64(canvasW)
	return w, w / srcRatio
}

// drawFrame composes one frame: the clip image cover-fitted to the canvas,
// scaled about the canvas center and shifted by the transform offset.
func drawFrame(dst *image.RGBA, src image.Image, tf Transform) {
	bounds := dst.Bounds()
	canvasW, canvasH := bounds.Dx(), bounds.Dy()
	srcBounds := src.Bounds()

	baseW, baseH := coverSize(srcBounds.Dx(), srcBounds.Dy(), canvasW, canvasH)
	drawW := baseW * tf.Scale
	drawH := baseH * tf.Scale

	// Anchor the scaled image so its center lands on the canvas center plus
	// the pan offset.
	originX := float64(canvasW)/2 + tf.OffsetX*tf.Scale - drawW/2
	originY := float64(canvasH)/2 - drawH/2

	scaleX := drawW / float64(srcBounds.Dx())
	scaleY := drawH / float64(srcBounds.Dy())
	matrix := f64.Aff3{
		scaleX, 0, originX - scaleX*float64(srcBounds.Min.X),
		0, scaleY, originY - scaleY*float64(srcBounds.Min.Y),
	}
	xdraw.ApproxBiLinear.Transform(dst, matrix, src, srcBounds, xdraw.Src, nil)
}
