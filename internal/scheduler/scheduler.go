package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"storycut/internal/logging"
	"storycut/internal/services"
	"storycut/internal/storyboard"
)

// Generator produces one still image for a segment and returns where it was
// stored.
type Generator interface {
	Generate(ctx context.Context, segment storyboard.Segment) (imagePath string, err error)
}

// Store is the slice of the storyboard store the scheduler needs.
type Store interface {
	ListSegments(ctx context.Context, projectID int64) ([]storyboard.Segment, error)
	MarkGenerating(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, imagePath string) error
	MarkFailed(ctx context.Context, id, message string) error
	MarkIdle(ctx context.Context, id string) error
	QuotaUsage(ctx context.Context, now time.Time) (int, error)
	IncrementQuota(ctx context.Context, now time.Time, n int) (int, error)
}

// Summary reports what a batch accomplished.
type Summary struct {
	Dispatched int
	Completed  int
	Failed     int
	Reverted   int
	Skipped    int
}

// Scheduler runs bounded-concurrency image generation batches. Starting a
// new batch cancels the previous one; a cancelled worker reverts its segment
// to idle instead of recording a failure.
type Scheduler struct {
	store       Store
	generator   Generator
	logger      *slog.Logger
	concurrency int
	dailyLimit  int
	now         func() time.Time

	mu          sync.Mutex
	cancelBatch context.CancelFunc
}

// New constructs a Scheduler.
func New(store Store, generator Generator, concurrency, dailyLimit int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		store:       store,
		generator:   generator,
		logger:      logger.With(slog.String(logging.FieldComponent, "scheduler")),
		concurrency: concurrency,
		dailyLimit:  dailyLimit,
		now:         time.Now,
	}
}

// Cancel aborts the in-flight batch, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelBatch != nil {
		s.cancelBatch()
		s.cancelBatch = nil
	}
}

func (s *Scheduler) beginBatch(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelBatch != nil {
		s.cancelBatch()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	s.cancelBatch = cancel
	return batchCtx, cancel
}

func (s *Scheduler) endBatch(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if s.cancelBatch != nil {
		// Only clear if a newer batch hasn't replaced it.
		s.cancelBatch = nil
	}
}

// Run generates images for the eligible segments of a project. When
// segmentIDs is non-empty only those segments are considered; completed and
// in-flight segments are always skipped. The quota ceiling is checked before
// the batch starts and again, against a local shadow counter, before every
// dispatch.
func (s *Scheduler) Run(ctx context.Context, projectID int64, segmentIDs []string) (Summary, error) {
	var summary Summary

	segments, err := s.store.ListSegments(ctx, projectID)
	if err != nil {
		return summary, fmt.Errorf("list segments: %w", err)
	}

	wanted := make(map[string]struct{}, len(segmentIDs))
	for _, id := range segmentIDs {
		wanted[id] = struct{}{}
	}

	batch := make([]storyboard.Segment, 0, len(segments))
	for _, segment := range segments {
		if len(wanted) > 0 {
			if _, ok := wanted[segment.ID]; !ok {
				continue
			}
		}
		if !segment.EligibleForBatch() {
			continue
		}
		batch = append(batch, segment)
	}
	if len(batch) == 0 {
		return summary, nil
	}

	usage, err := s.store.QuotaUsage(ctx, s.now())
	if err != nil {
		return summary, fmt.Errorf("read quota: %w", err)
	}
	if usage >= s.dailyLimit {
		return summary, services.Wrap(services.ErrQuotaExceeded, "scheduler", "run",
			fmt.Sprintf("%d of %d daily generations used", usage, s.dailyLimit), nil)
	}

	batchCtx, cancel := s.beginBatch(ctx)
	defer s.endBatch(cancel)

	s.logger.Info("batch started",
		slog.Int64("project", projectID),
		slog.Int("segments", len(batch)),
		slog.Int("concurrency", s.concurrency))

	// shadow tracks quota locally so concurrent workers cannot overshoot the
	// ceiling between persisted increments. A reservation is taken at
	// dispatch and handed back when the task fails or is reverted; only
	// successful generations keep their slot.
	var (
		shadowMu sync.Mutex
		shadow   = usage
	)
	takeQuota := func() bool {
		shadowMu.Lock()
		defer shadowMu.Unlock()
		if shadow >= s.dailyLimit {
			return false
		}
		shadow++
		return true
	}
	releaseQuota := func() {
		shadowMu.Lock()
		defer shadowMu.Unlock()
		shadow--
	}

	var (
		wg        sync.WaitGroup
		summaryMu sync.Mutex
	)
	permits := make(chan struct{}, s.concurrency)

	for _, segment := range batch {
		if batchCtx.Err() != nil {
			summary.Skipped++
			continue
		}
		if !takeQuota() {
			summary.Skipped++
			continue
		}

		select {
		case permits <- struct{}{}:
		case <-batchCtx.Done():
			summary.Skipped++
			continue
		}

		summary.Dispatched++
		wg.Add(1)
		go func(segment storyboard.Segment) {
			defer wg.Done()
			defer func() { <-permits }()

			outcome := s.generateOne(batchCtx, segment)
			if outcome != outcomeCompleted {
				releaseQuota()
			}
			summaryMu.Lock()
			switch outcome {
			case outcomeCompleted:
				summary.Completed++
			case outcomeFailed:
				summary.Failed++
			case outcomeReverted:
				summary.Reverted++
			}
			summaryMu.Unlock()
		}(segment)
	}

	wg.Wait()

	s.logger.Info("batch finished",
		slog.Int64("project", projectID),
		slog.Int("dispatched", summary.Dispatched),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("reverted", summary.Reverted),
		slog.Int("skipped", summary.Skipped))

	if summary.Skipped > 0 && shadow >= s.dailyLimit {
		return summary, services.Wrap(services.ErrQuotaExceeded, "scheduler", "run",
			fmt.Sprintf("quota exhausted mid-batch, %d segments skipped", summary.Skipped), nil)
	}
	return summary, nil
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeReverted
)

func (s *Scheduler) generateOne(ctx context.Context, segment storyboard.Segment) outcome {
	logger := s.logger.With(slog.String("segment", segment.ID))

	if err := s.store.MarkGenerating(ctx, segment.ID); err != nil {
		logger.Error("claim segment", slog.Any("error", err))
		return outcomeFailed
	}

	imagePath, err := s.generator.Generate(ctx, segment)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			// Revert with a fresh context: the batch context is already dead.
			if revertErr := s.store.MarkIdle(context.WithoutCancel(ctx), segment.ID); revertErr != nil {
				logger.Error("revert cancelled segment", slog.Any("error", revertErr))
			}
			logger.Info("segment reverted after cancellation")
			return outcomeReverted
		}
		if markErr := s.store.MarkFailed(ctx, segment.ID, services.UserMessage(err)); markErr != nil {
			logger.Error("record failure", slog.Any("error", markErr))
		}
		logger.Warn("segment generation failed", slog.Any("error", err))
		return outcomeFailed
	}

	if err := s.store.MarkCompleted(ctx, segment.ID, imagePath); err != nil {
		logger.Error("record completion", slog.Any("error", err))
		return outcomeFailed
	}
	if _, err := s.store.IncrementQuota(ctx, s.now(), 1); err != nil {
		logger.Warn("record quota usage", slog.Any("error", err))
	}
	logger.Info("segment completed", slog.String("image", imagePath))
	return outcomeCompleted
}
