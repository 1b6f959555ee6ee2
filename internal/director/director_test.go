package director_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"storycut/internal/director"
	"storycut/internal/logging"
	"storycut/internal/services/gemini"
	"storycut/internal/storyboard"
	"storycut/internal/subtitles"
)

type fakeCollaborator struct {
	items        []gemini.StoryboardItem
	itemsErr     error
	descriptions []string
	describeErr  error
	refined      string
	refineErr    error

	lastSystem string
	lastUser   string
}

func (f *fakeCollaborator) GenerateStoryboard(_ context.Context, system, user string) ([]gemini.StoryboardItem, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.items, f.itemsErr
}

func (f *fakeCollaborator) DescribeReferences(_ context.Context, _ string, _ []gemini.InlineImage) ([]string, error) {
	return f.descriptions, f.describeErr
}

func (f *fakeCollaborator) RefinePrompt(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.refined, f.refineErr
}

func intPtr(v int) *int { return &v }

func TestPlanProducesContiguousStoryboard(t *testing.T) {
	cues := []subtitles.Cue{
		{ID: "1", Start: 0.0, End: 2.0, Text: "Hello"},
		{ID: "2", Start: 2.0, End: 4.0, Text: "World"},
		{ID: "3", Start: 5.0, End: 8.0, Text: "End"},
	}
	fake := &fakeCollaborator{items: []gemini.StoryboardItem{
		{SubtitleIDs: []string{"1", "2"}, VisualPrompt: "a", CameraMovement: "Zoom In"},
		{SubtitleIDs: []string{"3"}, VisualPrompt: "b", CameraMovement: "Static"},
	}}
	d := director.New(fake, logging.NewNop())

	segments, err := d.Plan(context.Background(), cues, storyboard.DefaultStyle(), nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	var total float64
	for _, segment := range segments {
		total += segment.DurationSeconds
		if segment.Status != storyboard.StatusIdle {
			t.Errorf("segment starts in status %q", segment.Status)
		}
	}
	if math.Abs(total-8.0) > 1e-9 {
		t.Fatalf("storyboard covers %v seconds, want 8 (script end)", total)
	}
	if segments[0].DurationSeconds != 5.0 {
		t.Fatalf("gap before second segment should extend the first, got %v", segments[0].DurationSeconds)
	}
}

func TestPlanUsesHealingStrategyForTherapeuticStyle(t *testing.T) {
	cues := []subtitles.Cue{{ID: "1", Start: 0, End: 2, Text: "x"}}
	fake := &fakeCollaborator{items: []gemini.StoryboardItem{
		{SubtitleIDs: []string{"1"}, VisualPrompt: "a"},
	}}
	d := director.New(fake, logging.NewNop())

	style, _ := storyboard.StyleByID("oil_painting")
	if _, err := d.Plan(context.Background(), cues, style, nil); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !strings.Contains(fake.lastSystem, "therapeutic") {
		t.Fatal("therapeutic style should select the healing strategy")
	}

	hyperreal, _ := storyboard.StyleByID("hyperreal")
	if _, err := d.Plan(context.Background(), cues, hyperreal, nil); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !strings.Contains(fake.lastSystem, "retention") {
		t.Fatal("non-therapeutic style should select the viral strategy")
	}
}

func TestPlanIncludesReferenceDescriptions(t *testing.T) {
	cues := []subtitles.Cue{{ID: "1", Start: 0, End: 2, Text: "x"}}
	fake := &fakeCollaborator{items: []gemini.StoryboardItem{
		{SubtitleIDs: []string{"1"}, VisualPrompt: "a", ReferenceIndex: intPtr(0)},
	}}
	d := director.New(fake, logging.NewNop())

	references := []storyboard.ReferenceAsset{
		{MIMEType: "image/png", Data: []byte{1}, Description: "a red lighthouse"},
	}
	segments, err := d.Plan(context.Background(), cues, storyboard.DefaultStyle(), references)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !strings.Contains(fake.lastUser, "a red lighthouse") {
		t.Fatal("reference description missing from prompt")
	}
	if segments[0].ReferenceIndex != 0 {
		t.Fatalf("expected reference index 0, got %d", segments[0].ReferenceIndex)
	}
}

func TestPlanFailsWhenNothingMatches(t *testing.T) {
	cues := []subtitles.Cue{{ID: "1", Start: 0, End: 2, Text: "x"}}
	fake := &fakeCollaborator{items: []gemini.StoryboardItem{
		{SubtitleIDs: []string{"nope"}, VisualPrompt: "a"},
	}}
	d := director.New(fake, logging.NewNop())

	if _, err := d.Plan(context.Background(), cues, storyboard.DefaultStyle(), nil); err == nil {
		t.Fatal("expected error when the plan matches no cues")
	}
}

func TestPlanPropagatesClientErrors(t *testing.T) {
	cues := []subtitles.Cue{{ID: "1", Start: 0, End: 2, Text: "x"}}
	wantErr := errors.New("upstream down")
	fake := &fakeCollaborator{itemsErr: wantErr}
	d := director.New(fake, logging.NewNop())

	_, err := d.Plan(context.Background(), cues, storyboard.DefaultStyle(), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestAnalyzeReferencesFallsBackToPlaceholders(t *testing.T) {
	fake := &fakeCollaborator{describeErr: errors.New("boom")}
	d := director.New(fake, logging.NewNop())

	assets := []storyboard.ReferenceAsset{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/png", Data: []byte{2}},
	}
	described := d.AnalyzeReferences(context.Background(), assets)
	if described[0].Description != "Reference Image 1" || described[1].Description != "Reference Image 2" {
		t.Fatalf("unexpected placeholders: %q, %q", described[0].Description, described[1].Description)
	}
}

func TestAnalyzeReferencesUsesModelDescriptions(t *testing.T) {
	fake := &fakeCollaborator{descriptions: []string{"an old fisherman", "  "}}
	d := director.New(fake, logging.NewNop())

	assets := []storyboard.ReferenceAsset{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/png", Data: []byte{2}},
	}
	described := d.AnalyzeReferences(context.Background(), assets)
	if described[0].Description != "an old fisherman" {
		t.Fatalf("unexpected description %q", described[0].Description)
	}
	if described[1].Description != "Reference Image 2" {
		t.Fatalf("blank description should fall back, got %q", described[1].Description)
	}
}

func TestRefineValidatesInput(t *testing.T) {
	fake := &fakeCollaborator{refined: "better prompt"}
	d := director.New(fake, logging.NewNop())

	if _, err := d.Refine(context.Background(), "", "feedback"); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if _, err := d.Refine(context.Background(), "prompt", " "); err == nil {
		t.Fatal("expected error for empty feedback")
	}

	refined, err := d.Refine(context.Background(), "prompt", "make it moodier")
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if refined != "better prompt" {
		t.Fatalf("unexpected refined prompt %q", refined)
	}
	if !strings.Contains(fake.lastUser, "make it moodier") {
		t.Fatal("feedback missing from prompt")
	}
}
