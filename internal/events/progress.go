package events

import (
	"sync"
	"time"
)

// ProgressReporter lets long-running jobs report completed/total progress.
// Reports are throttled so a fast batch does not flood listeners; reaching
// the total always bypasses the throttle so the final 100% is never dropped.
type ProgressReporter struct {
	manager     *Manager
	jobID       string
	jobType     string
	minInterval time.Duration

	mu         sync.Mutex
	lastReport time.Time
	lastValue  int
}

// NewProgressReporter creates a progress reporter for one job run.
func NewProgressReporter(manager *Manager, jobID, jobType string) *ProgressReporter {
	return &ProgressReporter{
		manager:     manager,
		jobID:       jobID,
		jobType:     jobType,
		minInterval: 100 * time.Millisecond,
	}
}

// Report emits a progress event. Progress is monotonic: a report below the
// highest value seen so far is ignored, so concurrent completions can never
// make the displayed counter move backwards.
func (pr *ProgressReporter) Report(current, total int, message string) {
	if pr.manager == nil {
		return
	}

	pr.mu.Lock()
	if current < pr.lastValue {
		pr.mu.Unlock()
		return
	}
	pr.lastValue = current

	now := time.Now()
	if now.Sub(pr.lastReport) < pr.minInterval && current != total {
		pr.mu.Unlock()
		return
	}
	pr.lastReport = now
	pr.mu.Unlock()

	pr.manager.Emit(JobProgress, pr.jobType, map[string]interface{}{
		"job_id":  pr.jobID,
		"current": current,
		"total":   total,
		"message": message,
	})
}
