package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	FundRefreshed     EventType = "FUND_REFRESHED"
	FundRefreshFailed EventType = "FUND_REFRESH_FAILED"
	SnapshotWritten   EventType = "SNAPSHOT_WRITTEN"
	BudgetUpdated     EventType = "BUDGET_UPDATED"
	StrategySwitched  EventType = "STRATEGY_SWITCHED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Listener receives every emitted event. Registered listeners are invoked
// synchronously on the emitting goroutine.
type Listener func(Event)

// Manager handles event emission and logging
type Manager struct {
	log       zerolog.Logger
	mu        sync.RWMutex
	listeners []Listener
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a listener for all events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	// Log event
	eventJSON, _ := json.Marshal(event)
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	m.mu.RLock()
	listeners := m.listeners
	m.mu.RUnlock()
	for _, l := range listeners {
		l(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}
