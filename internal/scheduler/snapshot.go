package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/modules/portfolio"
)

// SnapshotJob records one portfolio valuation per day for the trend chart.
// Re-running on the same day overwrites that day's row, so a manual trigger
// after the scheduled run is harmless.
type SnapshotJob struct {
	portfolio *portfolio.Service
	log       zerolog.Logger
}

// NewSnapshotJob creates the daily snapshot job.
func NewSnapshotJob(portfolioService *portfolio.Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		portfolio: portfolioService,
		log:       log.With().Str("job", "snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "daily_snapshot"
}

// Run writes today's snapshot.
func (j *SnapshotJob) Run() error {
	if err := j.portfolio.WriteDailySnapshot(); err != nil {
		return err
	}
	j.log.Info().Msg("Daily snapshot written")
	return nil
}
