package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storycut/internal/director"
	"storycut/internal/services"
)

func newRefineCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refine <segment-id> <feedback>",
		Short: "Rewrite a segment's visual prompt from feedback",
		Long: `Asks the collaborator to rewrite the segment's visual prompt using your
feedback, then resets the segment to idle so the next generate run produces a
fresh image from the refined prompt.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
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

			segmentID := args[0]
			feedback := strings.TrimSpace(strings.Join(args[1:], " "))

			segment, err := store.GetSegment(runCtx, segmentID)
			if err != nil {
				return err
			}
			if segment == nil {
				return services.Wrap(services.ErrNotFound, "cli", "refine", fmt.Sprintf("segment %s not found", segmentID), nil)
			}

			client, err := ctx.geminiClient()
			if err != nil {
				return err
			}
			refined, err := director.New(client, logger).Refine(runCtx, segment.VisualPrompt, feedback)
			if err != nil {
				return err
			}
			if err := store.UpdatePrompt(runCtx, segmentID, refined); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Refined prompt for segment %s:\n\n%s\n\n", segmentID, refined)
			fmt.Fprintf(out, "Regenerate with 'storycut regenerate %s'.\n", segmentID)
			return nil
		},
	}
	return cmd
}
