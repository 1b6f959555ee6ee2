package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storycut/internal/director"
	"storycut/internal/storyboard"
	"storycut/internal/subtitles"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	var (
		styleFlag     string
		aspectFlag    string
		seedFlag      int64
		nameFlag      string
		referenceFlag []string
	)

	cmd := &cobra.Command{
		Use:   "storyboard <script.srt>",
		Short: "Plan a storyboard from a subtitle script",
		Long: `Parses a SubRip subtitle file, asks the generative collaborator to group
cues into visual segments, and stores the resulting storyboard as a new
project. Segments start idle; run 'storycut generate' to produce images.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			scriptPath := args[0]
			raw, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			if err := subtitles.ValidateRaw(string(raw)); err != nil {
				return err
			}
			cues := subtitles.Parse(string(raw))
			if err := subtitles.ValidateCues(cues, float64(cfg.Quota.MaxScriptSeconds)); err != nil {
				return err
			}

			style, ok := storyboard.StyleByID(styleFlag)
			if !ok {
				return fmt.Errorf("unknown style %q (see 'storycut styles')", styleFlag)
			}
			aspect, ok := storyboard.ParseAspectRatio(aspectFlag)
			if !ok {
				return fmt.Errorf("unsupported aspect ratio %q (9:16 or 16:9)", aspectFlag)
			}

			references, err := loadReferenceAssets(referenceFlag)
			if err != nil {
				return err
			}

			client, err := ctx.geminiClient()
			if err != nil {
				return err
			}
			planner := director.New(client, logger)

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			out := cmd.OutOrStdout()
			if len(references) > 0 {
				fmt.Fprintf(out, "Analyzing %d reference image(s)...\n", len(references))
				references = planner.AnalyzeReferences(runCtx, references)
			}

			fmt.Fprintf(out, "Planning storyboard for %d cue(s)...\n", len(cues))
			segments, err := planner.Plan(runCtx, cues, style, references)
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			seed := seedFlag
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			name := strings.TrimSpace(nameFlag)
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
			}

			project, err := store.CreateProject(runCtx, name, scriptPath, style.ID, aspect, seed)
			if err != nil {
				return err
			}
			if err := store.ReplaceSegments(runCtx, project.ID, segments); err != nil {
				return err
			}
			if err := persistReferences(runCtx, store, cfg.Paths.DataDir, project.ID, references); err != nil {
				return err
			}

			fmt.Fprintf(out, "Project %d %q: %d segment(s) planned\n\n", project.ID, project.Name, len(segments))
			printSegmentPlan(cmd, segments)
			fmt.Fprintln(out, "\nNext: 'storycut generate' to create the segment images.")
			return nil
		},
	}

	cmd.Flags().StringVar(&styleFlag, "style", storyboard.DefaultStyle().ID, "Visual style ID")
	cmd.Flags().StringVar(&aspectFlag, "aspect", string(storyboard.AspectPortrait), "Output aspect ratio (9:16 or 16:9)")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Image generation seed (0 picks a random seed)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "Project name (defaults to the script file name)")
	cmd.Flags().StringArrayVar(&referenceFlag, "reference", nil, "Reference image for visual consistency (repeatable)")

	return cmd
}

func loadReferenceAssets(paths []string) ([]storyboard.ReferenceAsset, error) {
	assets := make([]storyboard.ReferenceAsset, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read reference image: %w", err)
		}
		mimeType, err := referenceMIMEType(path)
		if err != nil {
			return nil, err
		}
		assets = append(assets, storyboard.ReferenceAsset{Data: data, MIMEType: mimeType})
	}
	return assets, nil
}

// persistReferences copies reference images into the data directory and
// records them so later generate runs can reattach them.
func persistReferences(ctx context.Context, store *storyboard.Store, dataDir string, projectID int64, references []storyboard.ReferenceAsset) error {
	if len(references) == 0 {
		return nil
	}
	dir := filepath.Join(dataDir, "references")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create references directory: %w", err)
	}

	stored := make([]storyboard.StoredReference, 0, len(references))
	for i, reference := range references {
		path := filepath.Join(dir, fmt.Sprintf("p%d_ref%d%s", projectID, i, referenceExtension(reference.MIMEType)))
		if err := os.WriteFile(path, reference.Data, 0o644); err != nil {
			return fmt.Errorf("store reference image: %w", err)
		}
		stored = append(stored, storyboard.StoredReference{
			Position:    i,
			ImagePath:   path,
			MIMEType:    reference.MIMEType,
			Description: reference.Description,
		})
	}
	return store.ReplaceReferences(ctx, projectID, stored)
}

func referenceExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func referenceMIMEType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".webp":
		return "image/webp", nil
	default:
		return "", fmt.Errorf("unsupported reference image type %q (jpg, png, webp)", filepath.Ext(path))
	}
}

func printSegmentPlan(cmd *cobra.Command, segments []storyboard.Segment) {
	rows := make([][]string, 0, len(segments))
	for _, segment := range segments {
		reference := ""
		if segment.HasReference() {
			reference = fmt.Sprintf("#%d", segment.ReferenceIndex+1)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", segment.Position+1),
			formatSeconds(segment.DurationSeconds),
			string(segment.CameraMovement),
			string(segment.Tactic),
			reference,
			truncateText(segment.Text, 48),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"#", "Duration", "Camera", "Tactic", "Ref", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
