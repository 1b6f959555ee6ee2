package storyboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// quotaDate keys the daily_quota table. Rollover follows UTC so a long
// overnight session resets at a predictable moment.
func quotaDate(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// QuotaUsage returns the number of image generations recorded today.
func (s *Store) QuotaUsage(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT count FROM daily_quota WHERE date = ?`,
		quotaDate(now),
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return count, nil
}

// IncrementQuota records n image generations against today's counter and
// returns the new total. Stale rows from earlier days are pruned in passing.
func (s *Store) IncrementQuota(ctx context.Context, now time.Time, n int) (int, error) {
	date := quotaDate(now)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO daily_quota (date, count) VALUES (?, ?)
         ON CONFLICT(date) DO UPDATE SET count = count + excluded.count`,
		date,
		n,
	)
	if err != nil {
		return 0, fmt.Errorf("increment quota: %w", err)
	}

	if _, err := s.execWithRetry(ctx, `DELETE FROM daily_quota WHERE date < ?`, date); err != nil {
		return 0, fmt.Errorf("prune quota: %w", err)
	}

	return s.QuotaUsage(ctx, now)
}
