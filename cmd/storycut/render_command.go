package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"storycut/internal/compositor"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		projectFlag int64
		outputFlag  string
		formatFlag  string
		stillsFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose the storyboard into a video",
		Long: `Renders the project's completed segments into a captioned video with Ken
Burns camera movement. Every segment must have a generated image; run
'storycut status' to check. With --stills only the first frame of each
segment is written as a PNG for a quick preview.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			project, err := resolveProject(runCtx, store, projectFlag)
			if err != nil {
				return err
			}
			segments, err := store.ListSegments(runCtx, project.ID)
			if err != nil {
				return err
			}
			clips, err := compositor.BuildTimeline(segments)
			if err != nil {
				return err
			}

			renderer := compositor.NewRenderer(project.AspectRatio, cfg.Render.FrameRate, logger)
			out := cmd.OutOrStdout()

			if stillsFlag {
				dir := filepath.Join(cfg.Paths.OutputDir, sanitizeFileName(project.Name)+"_stills")
				sink := &compositor.StillsSink{Dir: dir}
				if err := renderer.RenderStills(runCtx, clips, sink); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d still(s) to %s\n", len(clips), dir)
				return nil
			}

			formats := cfg.Render.Formats
			if formatFlag != "" {
				formats = []string{formatFlag}
			}
			target := outputFlag
			if target == "" {
				target = filepath.Join(cfg.Paths.OutputDir, sanitizeFileName(project.Name))
			}

			width, height := renderer.Dimensions()
			sink, outputPath, err := compositor.NewFFmpegSink(compositor.EncodeOptions{
				OutputPath: target,
				Width:      width,
				Height:     height,
				FrameRate:  cfg.Render.FrameRate,
				Bitrate:    cfg.Render.VideoBitrate,
				Formats:    formats,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Rendering %d segment(s) at %dx%d %dfps...\n", len(clips), width, height, cfg.Render.FrameRate)
			progress := renderProgress(out)
			if err := renderer.Render(runCtx, clips, sink, progress); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectFlag, "project", 0, "Project ID (defaults to the most recent project)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (extension set by the container format)")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Container format override (webm or mp4)")
	cmd.Flags().BoolVar(&stillsFlag, "stills", false, "Write first-frame PNG previews instead of a video")

	return cmd
}

// renderProgress redraws a single progress line on terminals and stays quiet
// when output is piped.
func renderProgress(out io.Writer) compositor.ProgressFunc {
	if !isTerminal(out) {
		return nil
	}
	last := -1
	return func(percent int) {
		if percent == last {
			return
		}
		last = percent
		fmt.Fprintf(out, "\rEncoding... %3d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(out)
		}
	}
}
