package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mosaicfin/mosaic/internal/database"
	"github.com/mosaicfin/mosaic/internal/scheduler"
)

// SystemHandlers serves the monitoring and maintenance endpoints: process
// and host stats, database size, and manual triggers for the scheduled jobs.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	db        *database.DB
	scheduler *scheduler.Scheduler

	// Jobs are set after registration in main.go.
	navRefreshJob scheduler.Job
	snapshotJob   scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		db:        db,
		scheduler: sched,
	}
}

// SetJobs registers job references for manual triggering.
func (h *SystemHandlers) SetJobs(navRefresh, snapshot scheduler.Job) {
	h.navRefreshJob = navRefresh
	h.snapshotJob = snapshot
}

// Routes registers system routes on the given router
func (h *SystemHandlers) Routes(r chi.Router) {
	r.Get("/system/status", h.handleStatus)
	r.Get("/system/database", h.handleDatabaseStats)
	r.Post("/system/jobs/nav-refresh", h.handleTriggerNavRefresh)
	r.Post("/system/jobs/snapshot", h.handleTriggerSnapshot)
}

// handleStatus handles GET /api/system/status
func (h *SystemHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPct, memPct := h.hostStats()

	h.writeJSON(w, map[string]interface{}{
		"status":     "running",
		"goroutines": runtime.NumGoroutine(),
		"process": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
		"host": map[string]interface{}{
			"cpu_percent": cpuPct,
			"mem_percent": memPct,
		},
	})
}

// handleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) handleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"data_dir":     h.dataDir,
		"data_size_mb": h.dirSizeMB(h.dataDir),
		"last_checked": time.Now().Format(time.RFC3339),
	})
}

func (h *SystemHandlers) handleTriggerNavRefresh(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.navRefreshJob, "NAV refresh")
}

func (h *SystemHandlers) handleTriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.snapshotJob, "snapshot")
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil {
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": label + " job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")
	if err := h.scheduler.RunNow(job); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.writeJSON(w, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	h.writeJSON(w, map[string]string{"status": "success", "message": label + " completed"})
}

// hostStats returns CPU and RAM usage percentages. The 100ms sampling window
// keeps the status call fast; clients poll this every few seconds.
func (h *SystemHandlers) hostStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// dirSizeMB calculates total size of a directory in MB
func (h *SystemHandlers) dirSizeMB(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
