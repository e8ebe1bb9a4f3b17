package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetachContext_OutlivesRequest(t *testing.T) {
	type key string
	reqCtx, cancel := context.WithCancel(context.WithValue(context.Background(), key("project"), "p1"))
	jobCtx := DetachContext(reqCtx)

	cancel()

	assert.Error(t, reqCtx.Err())
	assert.NoError(t, jobCtx.Err())
	assert.Equal(t, "p1", jobCtx.Value(key("project")))
}

func TestDetachContextWithTimeout(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	jobCtx, jobCancel := DetachContextWithTimeout(reqCtx, 50*time.Millisecond)
	defer jobCancel()

	cancel()
	require.NoError(t, jobCtx.Err(), "job context must survive the request")

	_, ok := jobCtx.Deadline()
	require.True(t, ok)

	select {
	case <-jobCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context never hit its own deadline")
	}
	assert.ErrorIs(t, jobCtx.Err(), context.DeadlineExceeded)
}
