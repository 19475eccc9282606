package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery_StartNow(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("tick", time.Hour, true, func(context.Context) { runs.Add(1) }))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestOnce(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, s.Once("retry", 50*time.Millisecond, func(context.Context) { close(done) }))
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("one-off job did not run")
	}
}

func TestStop_CancelsTaskContext(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, s.Every("long", time.Hour, true, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))
	s.Start()

	<-started
	require.NoError(t, s.Stop())
	assert.True(t, cancelled.Load())
}

func TestEvery_RejectsBadInterval(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Stop()

	assert.Error(t, s.Every("bad", 0, false, func(context.Context) {}))
}
