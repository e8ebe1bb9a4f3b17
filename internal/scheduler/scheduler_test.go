package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	calls atomic.Int32
	block chan struct{}
}

func (c *countingSyncer) SyncAll(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	return 0, nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(&countingSyncer{}, "not a cron spec")
	assert.Error(t, err)
}

func TestNewScheduler_DefaultSpec(t *testing.T) {
	s, err := NewScheduler(&countingSyncer{}, "")
	require.NoError(t, err)
	require.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunsJob(t *testing.T) {
	syncer := &countingSyncer{}
	s, err := NewScheduler(syncer, "@every 1s")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
}

func TestSyncProjects_SkipsOverlap(t *testing.T) {
	syncer := &countingSyncer{block: make(chan struct{})}
	s, err := NewScheduler(syncer, "")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.syncProjects()
		close(done)
	}()
	require.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.syncProjects()
	assert.EqualValues(t, 1, syncer.calls.Load())

	close(syncer.block)
	<-done
}
