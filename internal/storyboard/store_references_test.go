package storyboard_test

import (
	"context"
	"testing"

	"storycut/internal/storyboard"
	"storycut/internal/testsupport"
)

func TestReplaceAndListReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	project := testsupport.MustCreateProject(t, store)

	references := []storyboard.StoredReference{
		{ImagePath: "/tmp/ref0.jpg", MIMEType: "image/jpeg", Description: "an older fisherman"},
		{ImagePath: "/tmp/ref1.png", MIMEType: "image/png", Description: "a wooden rowboat"},
	}
	if err := store.ReplaceReferences(context.Background(), project.ID, references); err != nil {
		t.Fatalf("ReplaceReferences failed: %v", err)
	}

	listed, err := store.ListReferences(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("ListReferences failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 references, got %d", len(listed))
	}
	if listed[0].Position != 0 || listed[1].Position != 1 {
		t.Fatalf("positions not assigned in order: %+v", listed)
	}
	if listed[1].Description != "a wooden rowboat" {
		t.Fatalf("unexpected description: %q", listed[1].Description)
	}

	// Replacing again discards the previous set.
	if err := store.ReplaceReferences(context.Background(), project.ID, references[:1]); err != nil {
		t.Fatalf("second ReplaceReferences failed: %v", err)
	}
	listed, err = store.ListReferences(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("ListReferences after replace failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 reference after replace, got %d", len(listed))
	}
}

func TestListReferencesEmptyProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	project := testsupport.MustCreateProject(t, store)

	listed, err := store.ListReferences(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("ListReferences failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no references, got %d", len(listed))
	}
}

func TestUpdatePromptResetsSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	project := testsupport.MustCreateProject(t, store)
	seedSegments(t, store, project.ID, 1)

	ctx := context.Background()
	if err := store.MarkGenerating(ctx, "seg-0"); err != nil {
		t.Fatalf("MarkGenerating failed: %v", err)
	}
	if err := store.MarkFailed(ctx, "seg-0", "model produced nothing"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	if err := store.UpdatePrompt(ctx, "seg-0", "a misty harbor at first light"); err != nil {
		t.Fatalf("UpdatePrompt failed: %v", err)
	}

	segment, err := store.GetSegment(ctx, "seg-0")
	if err != nil {
		t.Fatalf("GetSegment failed: %v", err)
	}
	if segment.VisualPrompt != "a misty harbor at first light" {
		t.Fatalf("prompt not updated: %q", segment.VisualPrompt)
	}
	if segment.Status != storyboard.StatusIdle {
		t.Fatalf("status = %q, want idle", segment.Status)
	}
	if segment.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", segment.ErrorMessage)
	}

	if err := store.UpdatePrompt(ctx, "missing", "whatever"); err == nil {
		t.Fatal("expected error for unknown segment")
	}
}
