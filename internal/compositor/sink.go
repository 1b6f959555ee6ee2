package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FrameSink consumes rendered RGBA frames in order.
type FrameSink interface {
	// WriteFrame receives one frame; the sink must not retain the buffer.
	WriteFrame(frame *image.RGBA) error
	// Finish flushes and validates the output.
	Finish() error
}

// EncodeOptions configure the ffmpeg encode sink.
type EncodeOptions struct {
	OutputPath string
	Width      int
	Height     int
	FrameRate  int
	Bitrate    string
	// Formats is the container preference order; the first entry decides the
	// codec and extension.
	Formats []string
}

type containerSettings struct {
	extension  string
	videoCodec string
	extraArgs  ffmpeg.KwArgs
}

func settingsForFormat(format string) (containerSettings, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "webm":
		return containerSettings{
			extension:  ".webm",
			videoCodec: "libvpx-vp9",
			extraArgs:  ffmpeg.KwArgs{"row-mt": "1"},
		}, nil
	case "mp4":
		return containerSettings{
			extension:  ".mp4",
			videoCodec: "libx264",
			extraArgs:  ffmpeg.KwArgs{"pix_fmt": "yuv420p", "movflags": "+faststart"},
		}, nil
	default:
		return containerSettings{}, fmt.Errorf("unsupported container %q", format)
	}
}

// listEncoders asks the local ffmpeg build which encoders it carries.
// Overridable in tests.
var listEncoders = func() (string, error) {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	return string(out), err
}

// selectContainer walks the container preference order and picks the first
// one whose video encoder the local ffmpeg supports. When the encoder list
// cannot be probed at all, the first valid format wins and the encode itself
// surfaces any codec problem.
func selectContainer(formats []string) (containerSettings, error) {
	available, probeErr := listEncoders()

	var missing []string
	var lastErr error
	for _, format := range formats {
		settings, err := settingsForFormat(format)
		if err != nil {
			lastErr = err
			continue
		}
		if probeErr != nil {
			return settings, nil
		}
		if strings.Contains(available, settings.videoCodec) {
			return settings, nil
		}
		missing = append(missing, settings.videoCodec)
	}
	if len(missing) > 0 {
		return containerSettings{}, fmt.Errorf("ffmpeg has none of the configured encoders: %s", strings.Join(missing, ", "))
	}
	if lastErr != nil {
		return containerSettings{}, lastErr
	}
	return containerSettings{}, errors.New("no container formats configured")
}

// ffmpegSink pipes raw RGBA frames into an ffmpeg encode process.
type ffmpegSink struct {
	opts       EncodeOptions
	outputPath string

	pipeWriter *io.PipeWriter
	runErr     chan error
	frames     int64
	closeOnce  sync.Once
}

// NewFFmpegSink builds a sink that encodes to the first configured
// container format. OutputPath's extension is replaced to match.
func NewFFmpegSink(opts EncodeOptions) (FrameSink, string, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{"webm", "mp4"}
	}
	settings, err := selectContainer(opts.Formats)
	if err != nil {
		return nil, "", err
	}
	if opts.FrameRate <= 0 {
		return nil, "", errors.New("frame rate must be positive")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, "", errors.New("canvas dimensions must be positive")
	}

	outputPath := strings.TrimSuffix(opts.OutputPath, filepath.Ext(opts.OutputPath)) + settings.extension
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("ensure output directory: %w", err)
	}

	reader, writer := io.Pipe()
	sink := &ffmpegSink{
		opts:       opts,
		outputPath: outputPath,
		pipeWriter: writer,
		runErr:     make(chan error, 1),
	}

	outputArgs := ffmpeg.KwArgs{
		"c:v": settings.videoCodec,
		"b:v": opts.Bitrate,
		"r":   fmt.Sprintf("%d", opts.FrameRate),
	}
	for k, v := range settings.extraArgs {
		outputArgs[k] = v
	}

	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": fmt.Sprintf("%d", opts.FrameRate),
	}).
		Output(outputPath, outputArgs).
		OverWriteOutput().
		WithInput(reader)

	go func() {
		err := stream.Run()
		// Unblock a writer stuck on a dead encoder.
		_ = reader.CloseWithError(err)
		sink.runErr <- err
	}()

	return sink, outputPath, nil
}

func (s *ffmpegSink) WriteFrame(frame *image.RGBA) error {
	bounds := frame.Bounds()
	if bounds.Dx() != s.opts.Width || bounds.Dy() != s.opts.Height {
		return fmt.Errorf("frame is %dx%d, sink expects %dx%d", bounds.Dx(), bounds.Dy(), s.opts.Width, s.opts.Height)
	}
	if frame.Stride != 4*s.opts.Width {
		return errors.New("frame stride does not match canvas width")
	}
	if _, err := s.pipeWriter.Write(frame.Pix); err != nil {
		return fmt.Errorf("write frame to encoder: %w", err)
	}
	s.frames++
	return nil
}

func (s *ffmpegSink) Finish() error {
	s.closeOnce.Do(func() { _ = s.pipeWriter.Close() })
	if err := <-s.runErr; err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if s.frames == 0 {
		return errors.New("encode: no frames were written")
	}

	info, err := os.Stat(s.outputPath)
	if err != nil {
		return fmt.Errorf("encode: stat output: %w", err)
	}
	if info.Size() == 0 {
		// An empty file means the encoder silently produced nothing.
		return fmt.Errorf("encode: output %s is empty", s.outputPath)
	}
	return nil
}

// StillsSink writes each frame it is asked to keep as a numbered PNG.
// The renderer hands it only the first frame of every clip.
type StillsSink struct {
	Dir    string
	frames int
}

func (s *StillsSink) WriteFrame(frame *image.RGBA) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure stills directory: %w", err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("still_%03d.png", s.frames))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create still: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, frame); err != nil {
		return fmt.Errorf("encode still: %w", err)
	}
	s.frames++
	return nil
}

// Finish implements FrameSink.
func (s *StillsSink) Finish() error {
	if s.frames == 0 {
		return errors.New("stills: no frames were written")
	}
	return nil
}
