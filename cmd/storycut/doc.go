// Command storycut turns subtitle scripts into rendered videos: it plans a
// storyboard with a generative collaborator, batches the image generation,
// and composes the stills into a captioned video.
package main
