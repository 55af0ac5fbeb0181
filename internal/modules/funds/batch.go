package funds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/mosaicfin/mosaic/internal/events"
)

// Refresher refreshes a single fund. Satisfied by *Service.
type Refresher interface {
	RefreshFund(ctx context.Context, fundCode string) error
}

// BatchResult summarizes one batch refresh run.
type BatchResult struct {
	RunID     string            `json:"run_id"`
	Total     int               `json:"total"`
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
	Duration  time.Duration     `json:"-"`
}

// BatchRefresher refreshes many funds with bounded concurrency. One fund
// failing never aborts the rest of the batch, and the completion hook runs
// exactly once per run regardless of how many funds failed.
type BatchRefresher struct {
	refresher   Refresher
	events      *events.Manager
	concurrency int
	onComplete  func()
	log         zerolog.Logger
}

// NewBatchRefresher creates a batch refresher. concurrency values below 1 are
// treated as 1.
func NewBatchRefresher(refresher Refresher, eventManager *events.Manager, concurrency int, log zerolog.Logger) *BatchRefresher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRefresher{
		refresher:   refresher,
		events:      eventManager,
		concurrency: concurrency,
		log:         log.With().Str("service", "batch_refresh").Logger(),
	}
}

// OnComplete sets a hook invoked once after every run, after all units have
// settled.
func (b *BatchRefresher) OnComplete(fn func()) {
	b.onComplete = fn
}

// Run refreshes all given fund codes. Duplicate codes are refreshed once.
func (b *BatchRefresher) Run(ctx context.Context, fundCodes []string) *BatchResult {
	start := time.Now()
	codes := lo.Uniq(fundCodes)

	result := &BatchResult{
		RunID:  uuid.NewString(),
		Total:  len(codes),
		Failed: make(map[string]string),
	}

	b.events.Emit(events.JobStarted, "funds", map[string]interface{}{
		"job_id": result.RunID,
		"job":    "batch_refresh",
		"total":  result.Total,
	})
	progress := events.NewProgressReporter(b.events, result.RunID, "funds")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, b.concurrency)

	for _, code := range codes {
		wg.Add(1)
		go func(fundCode string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				result.Failed[fundCode] = ctx.Err().Error()
				done++
				progress.Report(done, result.Total, fundCode)
				mu.Unlock()
				return
			}

			err := b.refresher.RefreshFund(ctx, fundCode)

			mu.Lock()
			if err != nil {
				result.Failed[fundCode] = err.Error()
				b.log.Warn().Err(err).Str("fund_code", fundCode).Msg("Fund refresh failed")
			} else {
				result.Succeeded = append(result.Succeeded, fundCode)
			}
			done++
			progress.Report(done, result.Total, fundCode)
			mu.Unlock()
		}(code)
	}

	wg.Wait()
	result.Duration = time.Since(start)

	b.events.Emit(events.JobCompleted, "funds", map[string]interface{}{
		"job_id":    result.RunID,
		"job":       "batch_refresh",
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
		"duration":  result.Duration.String(),
	})

	if b.onComplete != nil {
		b.onComplete()
	}

	b.log.Info().
		Str("run_id", result.RunID).
		Int("total", result.Total).
		Int("failed", len(result.Failed)).
		Dur("duration", result.Duration).
		Msg("Batch refresh finished")

	return result
}
