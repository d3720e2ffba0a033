package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 */6 * * *"))
	assert.NoError(t, Validate("@hourly"))
	assert.Error(t, Validate("every six hours"))
	assert.Error(t, Validate("* * * * * *"))
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	_, err := New("nope", func(context.Context) error { return nil })
	assert.Error(t, err)

	_, err = New("@hourly", nil)
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@yearly", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.Start(context.Background(), true)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Next().After(time.Now()))
	s.Stop()
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s, err := New("@yearly", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	s.Start(context.Background(), true)
	<-started
	s.Stop()
	assert.True(t, cancelled.Load())

	// A second Stop is a no-op.
	s.Stop()
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@yearly", func(context.Context) error {
		runs.Add(1)
		return errors.New("search engine unreachable")
	})
	require.NoError(t, err)

	s.Start(context.Background(), true)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Start on a running scheduler does not trigger another run.
	s.Start(context.Background(), true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	s.Stop()
}
