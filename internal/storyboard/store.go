package storyboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages project and segment persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the project database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreateProject inserts a new project row.
func (s *Store) CreateProject(ctx context.Context, name, subtitlePath, styleID string, aspect AspectRatio, seed int64) (*Project, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO projects (name, subtitle_path, style_id, aspect_ratio, seed, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullableString(subtitlePath),
		styleID,
		string(aspect),
		seed,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetProject(ctx, id)
}

// GetProject fetches a project by identifier. Returns nil when absent.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// LatestProject returns the most recently created project, or nil when the
// database is empty.
func (s *Store) LatestProject(ctx context.Context) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id DESC LIMIT 1`)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest project: %w", err)
	}
	return project, nil
}

// UpdateProject persists changes to an existing project row.
func (s *Store) UpdateProject(ctx context.Context, project *Project) error {
	if project == nil {
		return errors.New("project is nil")
	}
	project.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE projects
         SET name = ?, subtitle_path = ?, style_id = ?, aspect_ratio = ?, seed = ?, updated_at = ?
         WHERE id = ?`,
		project.Name,
		nullableString(project.SubtitlePath),
		project.StyleID,
		string(project.AspectRatio),
		project.Seed,
		project.UpdatedAt.Format(time.RFC3339Nano),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// ReplaceSegments deletes a project's existing segments and inserts the new
// storyboard in one transaction. Positions are assigned from slice order.
func (s *Store) ReplaceSegments(ctx context.Context, projectID int64, segments []Segment) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for i, segment := range segments {
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO segments (
                    id, project_id, position, text, duration_seconds, visual_prompt,
                    camera_movement, viral_reasoning, tactic, status, image_path,
                    error_message, reference_index, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				segment.ID,
				projectID,
				i,
				nullableString(segment.Text),
				segment.DurationSeconds,
				nullableString(segment.VisualPrompt),
				string(segment.CameraMovement),
				nullableString(segment.ViralReasoning),
				nullableString(string(segment.Tactic)),
				string(segment.Status),
				nullableString(segment.ImagePath),
				nullableString(segment.ErrorMessage),
				segment.ReferenceIndex,
				now,
				now,
			)
			if err != nil {
				return fmt.Errorf("insert segment %s: %w", segment.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit replace: %w", err)
		}
		return nil
	})
}

// ListSegments returns a project's segments in storyboard order.
func (s *Store) ListSegments(ctx context.Context, projectID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE project_id = ? ORDER BY position`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// GetSegment fetches a single segment by identifier. Returns nil when absent.
func (s *Store) GetSegment(ctx context.Context, id string) (*Segment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return &segment, nil
}

const projectColumns = `id, name, subtitle_path, style_id, aspect_ratio, seed, created_at, updated_at`

const segmentColumns = `id, project_id, position, text, duration_seconds, visual_prompt,
    camera_movement, viral_reasoning, tactic, status, image_path, error_message,
    reference_index, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		project      Project
		subtitlePath sql.NullString
		aspect       string
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&project.ID,
		&project.Name,
		&subtitlePath,
		&project.StyleID,
		&aspect,
		&project.Seed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	project.SubtitlePath = subtitlePath.String
	project.AspectRatio = AspectRatio(aspect)
	project.CreatedAt = parseTimestamp(createdAt)
	project.UpdatedAt = parseTimestamp(updatedAt)
	return &project, nil
}

func scanSegment(row rowScanner) (Segment, error) {
	var (
		segment        Segment
		text           sql.NullString
		visualPrompt   sql.NullString
		movement       string
		viralReasoning sql.NullString
		tactic         sql.NullString
		status         string
		imagePath      sql.NullString
		errorMessage   sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(
		&segment.ID,
		&segment.ProjectID,
		&segment.Position,
		&text,
		&segment.DurationSeconds,
		&visualPrompt,
		&movement,
		&viralReasoning,
		&tactic,
		&status,
		&imagePath,
		&errorMessage,
		&segment.ReferenceIndex,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Segment{}, err
	}
	segment.Text = text.String
	segment.VisualPrompt = visualPrompt.String
	segment.CameraMovement = ParseCameraMovement(movement)
	segment.ViralReasoning = viralReasoning.String
	segment.Tactic = Tactic(tactic.String)
	if parsed, ok := ParseStatus(status); ok {
		segment.Status = parsed
	} else {
		segment.Status = StatusIdle
	}
	segment.ImagePath = imagePath.String
	segment.ErrorMessage = errorMessage.String
	segment.CreatedAt = parseTimestamp(createdAt)
	segment.UpdatedAt = parseTimestamp(updatedAt)
	return segment, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
