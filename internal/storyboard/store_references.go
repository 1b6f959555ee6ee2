package storyboard

import (
	"context"
	"database/sql"
	"fmt"
)

// StoredReference records where a project's reference image lives on disk
// along with the collaborator's description of it. Position matches the
// ReferenceIndex segments point at.
type StoredReference struct {
	Position    int
	ImagePath   string
	MIMEType    string
	Description string
}

// ReplaceReferences swaps the project's reference records in one transaction.
func (s *Store) ReplaceReferences(ctx context.Context, projectID int64, references []StoredReference) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace references: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `DELETE FROM project_references WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("clear references: %w", err)
		}
		for i, reference := range references {
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO project_references (project_id, position, image_path, mime_type, description) VALUES (?, ?, ?, ?, ?)`,
				projectID,
				i,
				reference.ImagePath,
				reference.MIMEType,
				reference.Description,
			)
			if err != nil {
				return fmt.Errorf("insert reference %d: %w", i, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit replace references: %w", err)
		}
		return nil
	})
}

// ListReferences returns the project's reference records ordered by position.
func (s *Store) ListReferences(ctx context.Context, projectID int64) ([]StoredReference, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT position, image_path, mime_type, description FROM project_references WHERE project_id = ? ORDER BY position`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer rows.Close()

	var references []StoredReference
	for rows.Next() {
		var reference StoredReference
		var description sql.NullString
		if err := rows.Scan(&reference.Position, &reference.ImagePath, &reference.MIMEType, &description); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		reference.Description = description.String
		references = append(references, reference)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return references, nil
}
