package testsupport

import (
	"context"
	"testing"
	"time"

	"storycut/internal/config"
	"storycut/internal/storyboard"
)

// MustOpenStore opens a storyboard.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storyboard.Store {
	t.Helper()

	store, err := storyboard.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// MustCreateProject inserts a project with sensible defaults for tests.
func MustCreateProject(t testing.TB, store *storyboard.Store) *storyboard.Project {
	t.Helper()

	project, err := store.CreateProject(
		context.Background(),
		"Test Project",
		"script.srt",
		storyboard.DefaultStyle().ID,
		storyboard.AspectPortrait,
		time.Now().UnixNano(),
	)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}
