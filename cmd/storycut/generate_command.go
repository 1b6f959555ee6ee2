package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storycut/internal/scheduler"
	"storycut/internal/services"
	"storycut/internal/storyboard"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var projectFlag int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate images for all pending storyboard segments",
		Long: `Runs batch image generation for every idle or failed segment of the
project. Completed segments are left untouched. Interrupting the batch with
Ctrl-C reverts in-flight segments to idle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withGenerationLock(func() error {
				return runGeneration(ctx, cmd, projectFlag, nil)
			})
		},
	}

	cmd.Flags().Int64Var(&projectFlag, "project", 0, "Project ID (defaults to the most recent project)")
	return cmd
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	var projectFlag int64

	cmd := &cobra.Command{
		Use:   "regenerate <segment-id>",
		Short: "Regenerate the image for a single segment",
		Long: `Forces a fresh generation for one segment, even when it already has a
completed image. Use 'storycut status' to find segment IDs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withGenerationLock(func() error {
				return runGeneration(ctx, cmd, projectFlag, []string{args[0]})
			})
		},
	}

	cmd.Flags().Int64Var(&projectFlag, "project", 0, "Project ID (defaults to the most recent project)")
	return cmd
}

func runGeneration(cmdCtx *commandContext, cmd *cobra.Command, projectID int64, segmentIDs []string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	store, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project, err := resolveProject(runCtx, store, projectID)
	if err != nil {
		return err
	}
	style, ok := storyboard.StyleByID(project.StyleID)
	if !ok {
		style = storyboard.DefaultStyle()
	}

	// Segments stranded by a previous crash would otherwise never be retried.
	if reset, err := store.ResetStuckGenerating(runCtx, project.ID); err != nil {
		return err
	} else if reset > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %d segment(s) stuck in generating\n", reset)
	}

	// Explicitly requested segments are regenerated even when completed.
	for _, id := range segmentIDs {
		segment, err := store.GetSegment(runCtx, id)
		if err != nil {
			return err
		}
		if segment == nil {
			return services.Wrap(services.ErrNotFound, "cli", "regenerate", fmt.Sprintf("segment %s not found", id), nil)
		}
		if segment.Status == storyboard.StatusCompleted {
			if err := store.MarkIdle(runCtx, id); err != nil {
				return err
			}
		}
	}

	references, err := loadProjectReferences(runCtx, store, project.ID)
	if err != nil {
		return err
	}

	client, err := cmdCtx.geminiClient()
	if err != nil {
		return err
	}
	generator := scheduler.NewGeminiGenerator(client, style, project.AspectRatio, project.Seed, references, cfg.ImageDir())
	batch := scheduler.New(store, generator, cfg.Scheduler.Concurrency, cfg.Quota.DailyImageLimit, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating images for project %d %q (concurrency %d)...\n", project.ID, project.Name, cfg.Scheduler.Concurrency)

	started := time.Now()
	summary, err := batch.Run(runCtx, project.ID, segmentIDs)
	printBatchSummary(cmd, summary, time.Since(started))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "Batch cancelled; in-flight segments reverted to idle.")
			return nil
		}
		return err
	}

	usage, usageErr := store.QuotaUsage(runCtx, time.Now())
	if usageErr == nil {
		fmt.Fprintf(out, "Daily quota: %d/%d images used\n", usage, cfg.Quota.DailyImageLimit)
	}
	return nil
}

// loadProjectReferences re-reads the reference images recorded at storyboard
// time. Positions must stay aligned with the segment reference indexes, so a
// missing file fails the batch instead of silently shifting assignments.
func loadProjectReferences(ctx context.Context, store *storyboard.Store, projectID int64) ([]storyboard.ReferenceAsset, error) {
	stored, err := store.ListReferences(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}

	references := make([]storyboard.ReferenceAsset, len(stored))
	for _, record := range stored {
		data, err := os.ReadFile(record.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read reference image: %w", err)
		}
		if record.Position < 0 || record.Position >= len(references) {
			return nil, fmt.Errorf("reference position %d out of range", record.Position)
		}
		references[record.Position] = storyboard.ReferenceAsset{
			Data:        data,
			MIMEType:    record.MIMEType,
			Description: record.Description,
		}
	}
	return references, nil
}

func printBatchSummary(cmd *cobra.Command, summary scheduler.Summary, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dispatched %d, completed %d, failed %d", summary.Dispatched, summary.Completed, summary.Failed)
	if summary.Reverted > 0 {
		fmt.Fprintf(out, ", reverted %d", summary.Reverted)
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(out, ", skipped %d", summary.Skipped)
	}
	fmt.Fprintf(out, " in %s\n", elapsed.Round(time.Second))
}
