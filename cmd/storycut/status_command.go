package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storycut/internal/storyboard"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var projectFlag int64

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storyboard progress for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			project, err := resolveProject(runCtx, store, projectFlag)
			if err != nil {
				return err
			}
			segments, err := store.ListSegments(runCtx, project.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %d: %s\n", project.ID, project.Name)
			fmt.Fprintf(out, "Style: %s  Aspect: %s  Seed: %d\n\n", project.StyleID, project.AspectRatio, project.Seed)

			counts := make(map[storyboard.Status]int, len(storyboard.AllStatuses()))
			var total float64
			rows := make([][]string, 0, len(segments))
			for _, segment := range segments {
				counts[segment.Status]++
				total += segment.DurationSeconds
				detail := ""
				if segment.ErrorMessage != "" {
					detail = truncateText(segment.ErrorMessage, 40)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", segment.Position+1),
					segment.ID,
					string(segment.Status),
					formatSeconds(segment.DurationSeconds),
					string(segment.CameraMovement),
					truncateText(segment.Text, 36),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Segment", "Status", "Duration", "Camera", "Text", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))

			fmt.Fprintf(
				out,
				"\n%d segment(s), %s total: %d completed, %d generating, %d idle, %d failed\n",
				len(segments),
				formatSeconds(total),
				counts[storyboard.StatusCompleted],
				counts[storyboard.StatusGenerating],
				counts[storyboard.StatusIdle],
				counts[storyboard.StatusFailed],
			)

			if usage, err := store.QuotaUsage(runCtx, time.Now()); err == nil {
				fmt.Fprintf(out, "Daily quota: %d/%d images used\n", usage, cfg.Quota.DailyImageLimit)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectFlag, "project", 0, "Project ID (defaults to the most recent project)")
	return cmd
}
