package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/modules/funds"
)

// NavRefreshJob refreshes NAV data for every fund the household holds.
// Runs after market close; funds without an upstream record are skipped by
// the batch coordinator, not retried here.
type NavRefreshJob struct {
	batch   *funds.BatchRefresher
	codes   funds.CodeSource
	service *funds.Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewNavRefreshJob creates the nightly NAV refresh job.
func NewNavRefreshJob(batch *funds.BatchRefresher, codes funds.CodeSource, service *funds.Service, log zerolog.Logger) *NavRefreshJob {
	return &NavRefreshJob{
		batch:   batch,
		codes:   codes,
		service: service,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "nav_refresh").Logger(),
	}
}

// Name returns the job name
func (j *NavRefreshJob) Name() string {
	return "nav_refresh"
}

// Run executes the refresh over all distinct held fund codes.
func (j *NavRefreshJob) Run() error {
	if !j.service.RefreshAvailable() {
		j.log.Debug().Msg("Fund API not configured, skipping NAV refresh")
		return nil
	}

	codes, err := j.codes.DistinctFundCodes()
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		j.log.Debug().Msg("No holdings, skipping NAV refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result := j.batch.Run(ctx, codes)
	j.log.Info().
		Str("run_id", result.RunID).
		Int("total", result.Total).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Dur("duration", result.Duration).
		Msg("NAV refresh completed")
	return nil
}
