package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"projector/internal/executor"
	"projector/pkg/logging"
)

// ErrSweepInProgress is returned when a sweep is requested while another one
// is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepRecorder receives one observation per kind swept.
type SweepRecorder interface {
	ObserveSweep(kind string, result executor.Result, duration time.Duration)
}

// Manager runs full sweeps over the synchronizers and tracks their status.
//
// It keeps:
//   - the synchronizers, in sweep order
//   - the latest status of every kind
//   - the report of the last completed sweep
type Manager struct {
	mu sync.RWMutex

	synchronizers []Synchronizer
	recorder      SweepRecorder

	// statusTracker holds the latest status of every kind
	statusTracker map[Kind]*KindStatus

	lastReport *Report

	// running indicates if a sweep is active
	running bool
}

// NewManager creates a manager over synchronizers, which are swept in the
// order given. recorder may be nil.
func NewManager(synchronizers []Synchronizer, recorder SweepRecorder) *Manager {
	m := &Manager{
		synchronizers: synchronizers,
		recorder:      recorder,
		statusTracker: make(map[Kind]*KindStatus, len(synchronizers)),
	}
	for _, s := range synchronizers {
		m.statusTracker[s.Kind()] = &KindStatus{Kind: s.Kind(), State: StatePending}
	}
	return m
}

// Kinds returns the kinds handled by the manager, in sweep order.
func (m *Manager) Kinds() []Kind {
	kinds := make([]Kind, 0, len(m.synchronizers))
	for _, s := range m.synchronizers {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

// SyncAll sweeps the given kinds, or every kind when none is given, always in
// sweep order. Per entity failures are counted in the report; an error is
// returned only when the sweep could not start.
func (m *Manager) SyncAll(ctx context.Context, kinds ...Kind) (Report, error) {
	selected, err := m.selectKinds(kinds)
	if err != nil {
		return Report{}, err
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return Report{}, ErrSweepInProgress
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	report := Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	logging.Info("Reconciler", "Starting sweep %s over %d kinds", report.RunID, len(selected))

	for _, s := range selected {
		report.Results = append(report.Results, m.syncKind(ctx, s))
	}

	report.FinishedAt = time.Now()
	total := report.Total()
	logging.Info("Reconciler", "Sweep %s finished in %s: %d fulfilled, %d errors",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), total.Fulfilled, total.Errors)

	m.mu.Lock()
	m.lastReport = &report
	m.mu.Unlock()
	return report, nil
}

func (m *Manager) syncKind(ctx context.Context, s Synchronizer) KindResult {
	kind := s.Kind()
	kr := KindResult{Kind: kind}

	if err := ctx.Err(); err != nil {
		kr.Error = err.Error()
		m.updateStatus(kind, StateError, kr.Result, kr.Error)
		return kr
	}

	m.updateStatus(kind, StateSyncing, executor.Result{}, "")
	start := time.Now()
	result, err := s.SyncAll(ctx)
	kr.Duration = time.Since(start)
	kr.Result = result

	if m.recorder != nil {
		m.recorder.ObserveSweep(string(kind), result, kr.Duration)
	}

	switch {
	case err != nil:
		logging.Error("Reconciler", err, "Failed to sweep %s", kind)
		kr.Error = err.Error()
		m.updateStatus(kind, StateError, result, kr.Error)
	case result.Errors > 0:
		logging.Warn("Reconciler", "Synced %s with failures: %d fulfilled, %d errors", kind, result.Fulfilled, result.Errors)
		m.updateStatus(kind, StateError, result, fmt.Sprintf("%d of %d entities failed", result.Errors, result.Total()))
	default:
		logging.Info("Reconciler", "Synced %s: %d entities", kind, result.Fulfilled)
		m.updateStatus(kind, StateSynced, result, "")
	}
	return kr
}

func (m *Manager) selectKinds(kinds []Kind) ([]Synchronizer, error) {
	if len(kinds) == 0 {
		return m.synchronizers, nil
	}

	wanted := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var selected []Synchronizer
	for _, s := range m.synchronizers {
		if wanted[s.Kind()] {
			selected = append(selected, s)
			delete(wanted, s.Kind())
		}
	}
	for k := range wanted {
		return nil, fmt.Errorf("unknown or disabled kind %q", k)
	}
	return selected, nil
}

// updateStatus updates the status of a kind.
func (m *Manager) updateStatus(kind Kind, state SyncState, result executor.Result, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statusTracker[kind]
	if !ok {
		status = &KindStatus{Kind: kind}
		m.statusTracker[kind] = status
	}

	status.State = state
	status.LastError = errMsg
	if state == StateSynced || state == StateError {
		now := time.Now()
		status.LastSyncTime = &now
		status.LastResult = result
	}
}

// Statuses returns the status of every kind, in sweep order.
func (m *Manager) Statuses() []KindStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]KindStatus, 0, len(m.synchronizers))
	for _, s := range m.synchronizers {
		statuses = append(statuses, *m.statusTracker[s.Kind()])
	}
	return statuses
}

// LastReport returns the report of the last completed sweep.
func (m *Manager) LastReport() (Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastReport == nil {
		return Report{}, false
	}
	return *m.lastReport, true
}

// IsRunning returns whether a sweep is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
