package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/executor"
)

type sweepObservation struct {
	kind   string
	result executor.Result
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []sweepObservation
}

func (r *fakeRecorder) ObserveSweep(kind string, result executor.Result, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, sweepObservation{kind: kind, result: result})
}

// stubSynchronizer returns a fixed result and records the order of calls.
type stubSynchronizer struct {
	kind   Kind
	result executor.Result
	err    error
	calls  *[]Kind
	block  chan struct{}
}

func (s *stubSynchronizer) Kind() Kind { return s.kind }

func (s *stubSynchronizer) SyncAll(ctx context.Context) (executor.Result, error) {
	*s.calls = append(*s.calls, s.kind)
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

func TestManager_SyncAllRunsEveryKindInOrder(t *testing.T) {
	f := newFixture(t, testSnapshot())
	rec := &fakeRecorder{}
	m := NewManager(f.set.Synchronizers(), rec)

	report, err := m.SyncAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	kinds := make([]Kind, 0, len(report.Results))
	for _, r := range report.Results {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, Order, kinds)
	assert.False(t, report.Failed())
	assert.Len(t, rec.obs, len(Order))

	// Users were projected with roles from the repository and space sweeps.
	u, ok := f.search.User("alice")
	require.True(t, ok)
	assert.Equal(t, []string{"repository.x-*.ezpaarse.readonly", "space.s1.ezpaarse.all"}, u.Roles)

	last, ok := m.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)
	for _, st := range m.Statuses() {
		assert.Equal(t, StateSynced, st.State, st.Kind)
		assert.NotNil(t, st.LastSyncTime)
	}
}

func TestManager_SelectedKindsKeepSweepOrder(t *testing.T) {
	var calls []Kind
	m := NewManager([]Synchronizer{
		&stubSynchronizer{kind: KindRepositories, calls: &calls},
		&stubSynchronizer{kind: KindUsers, calls: &calls},
		&stubSynchronizer{kind: KindSpaces, calls: &calls},
	}, nil)

	_, err := m.SyncAll(context.Background(), KindSpaces, KindRepositories)
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindRepositories, KindSpaces}, calls)

	_, err = m.SyncAll(context.Background(), KindReporting)
	assert.Error(t, err)
}

func TestManager_FailuresAreReported(t *testing.T) {
	var calls []Kind
	m := NewManager([]Synchronizer{
		&stubSynchronizer{kind: KindRepositories, calls: &calls, result: executor.Result{Fulfilled: 9, Errors: 1}},
		&stubSynchronizer{kind: KindAliases, calls: &calls, err: errors.New("store down")},
		&stubSynchronizer{kind: KindUsers, calls: &calls, result: executor.Result{Fulfilled: 3}},
	}, nil)

	report, err := m.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, executor.Result{Fulfilled: 12, Errors: 1}, report.Total())
	assert.Equal(t, "store down", report.Results[1].Error)

	statuses := m.Statuses()
	assert.Equal(t, StateError, statuses[0].State)
	assert.Equal(t, "1 of 10 entities failed", statuses[0].LastError)
	assert.Equal(t, StateError, statuses[1].State)
	assert.Equal(t, StateSynced, statuses[2].State)
}

func TestManager_RejectsConcurrentSweeps(t *testing.T) {
	var calls []Kind
	block := make(chan struct{})
	m := NewManager([]Synchronizer{
		&stubSynchronizer{kind: KindRepositories, calls: &calls, block: block},
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.SyncAll(context.Background())
	}()

	require.Eventually(t, m.IsRunning, time.Second, 5*time.Millisecond)
	_, err := m.SyncAll(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(block)
	<-done
	assert.False(t, m.IsRunning())
}

func TestManager_CancelledContextSkipsKinds(t *testing.T) {
	var calls []Kind
	m := NewManager([]Synchronizer{
		&stubSynchronizer{kind: KindRepositories, calls: &calls},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := m.SyncAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.True(t, report.Failed())
}

func TestManager_InitialStatusIsPending(t *testing.T) {
	f := newFixture(t, testSnapshot())
	m := NewManager(f.set.Synchronizers(), nil)

	_, ok := m.LastReport()
	assert.False(t, ok)
	for _, st := range m.Statuses() {
		assert.Equal(t, StatePending, st.State)
	}
	assert.Equal(t, Order, m.Kinds())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("roles")
	assert.True(t, ok)
	assert.Equal(t, KindElasticRoles, k)

	_, ok = ParseKind("widgets")
	assert.False(t, ok)
}
