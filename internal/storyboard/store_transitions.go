package storyboard

import (
	"context"
	"fmt"
	"time"
)

// Status transitions are single-row UPDATE statements keyed by segment id.
// Concurrent batch workers only ever touch their own segment, so there is no
// read-modify-write window between siblings.

// MarkGenerating claims a segment for an in-flight generation attempt and
// clears any stale failure message.
func (s *Store) MarkGenerating(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusGenerating,
		`UPDATE segments SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`)
}

// MarkCompleted records a successful generation and the stored image location.
func (s *Store) MarkCompleted(ctx context.Context, id, imagePath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET status = ?, image_path = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted,
		nullableString(imagePath),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark segment completed: %w", err)
	}
	return requireOneRow(res.RowsAffected())
}

// MarkFailed records a failed generation attempt with a diagnostic message.
// The image path from any earlier success is left untouched.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark segment failed: %w", err)
	}
	return requireOneRow(res.RowsAffected())
}

// MarkIdle reverts a segment that never produced a result, typically after a
// cancelled batch.
func (s *Store) MarkIdle(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusIdle,
		`UPDATE segments SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`)
}

func (s *Store) transition(ctx context.Context, id string, status Status, query string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, query, status, now, id)
	if err != nil {
		return fmt.Errorf("mark segment %s: %w", status, err)
	}
	return requireOneRow(res.RowsAffected())
}

func requireOneRow(affected int64, err error) error {
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("segment not found")
	}
	return nil
}

// UpdatePrompt replaces a segment's visual prompt after refinement and moves
// it back to idle so the next batch regenerates its image.
func (s *Store) UpdatePrompt(ctx context.Context, id, prompt string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET visual_prompt = ?, status = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		prompt,
		StatusIdle,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update segment prompt: %w", err)
	}
	return requireOneRow(res.RowsAffected())
}

// ResetStuckGenerating reverts segments left in the generating state by a
// crashed or killed process back to idle.
func (s *Store) ResetStuckGenerating(ctx context.Context, projectID int64) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET status = ?, updated_at = ? WHERE project_id = ? AND status = ?`,
		StatusIdle,
		time.Now().UTC().Format(time.RFC3339Nano),
		projectID,
		StatusGenerating,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck segments: %w", err)
	}
	return res.RowsAffected()
}
