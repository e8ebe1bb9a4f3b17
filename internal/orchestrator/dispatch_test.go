package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/discovery"
	"github.com/normanking/pmcortex/internal/llm"
	"github.com/normanking/pmcortex/internal/router"
)

// mustTransition fails loudly on a sequence the test expects to be legal.
func (d *dispatch) mustTransition(to State) {
	if err := d.transition(to); err != nil {
		panic(err)
	}
}

func TestDispatch_HappyPath(t *testing.T) {
	d := newDispatch()
	d.intent = router.IntentChat

	d.mustTransition(StateClassified)
	d.mustTransition(StateAgentRunning)
	d.mustTransition(StateDone)

	assert.Equal(t, []State{StateStart, StateClassified, StateAgentRunning, StateDone}, d.Trace())
}

func TestDispatch_IllegalTransitions(t *testing.T) {
	d := newDispatch()
	assert.Error(t, d.transition(StateAgentRunning))
	assert.Error(t, d.transition(StateDone))
	assert.Equal(t, StateStart, d.state)

	d.mustTransition(StateClassified)
	assert.Error(t, d.transition(StateClassified))

	assert.Panics(t, func() { d.mustTransition(StateDone) })
}

func TestDispatch_ErroredFromAnyState(t *testing.T) {
	for _, path := range [][]State{
		{},
		{StateClassified},
		{StateClassified, StateAgentRunning},
	} {
		d := newDispatch()
		for _, s := range path {
			d.mustTransition(s)
		}

		err := d.fail(errors.New("boom"))
		assert.EqualError(t, err, "boom")
		assert.Equal(t, StateErrored, d.state)

		// Terminal states accept nothing further.
		assert.Error(t, d.transition(StateDone))
		assert.Error(t, d.transition(StateErrored))
	}
}

func TestDispatch_DoneIsTerminal(t *testing.T) {
	d := newDispatch()
	d.mustTransition(StateClassified)
	d.mustTransition(StateAgentRunning)
	d.mustTransition(StateDone)

	_ = d.fail(errors.New("late"))
	assert.Equal(t, StateDone, d.state)
	assert.Equal(t, []State{StateStart, StateClassified, StateAgentRunning, StateDone}, d.Trace())
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: label", router.ErrClassification), KindClassification},
		{fmt.Errorf("wrapped: %w", ErrChatNotFound), KindChatNotFound},
		{ErrFeatureNotFound, KindNotFound},
		{discovery.ErrProjectNotFound, KindNotFound},
		{fmt.Errorf("analyze: %w", analysis.ErrUnavailable), KindUnavailable},
		{llm.ErrUnavailable, KindUnavailable},
		{fmt.Errorf("analyze: %w", analysis.ErrTimeout), KindTimeout},
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("primary: x; fallback: %w", llm.ErrTimeout), KindTimeout},
		{analysis.ErrMalformed, KindMalformed},
		{llm.ErrEmptyResponse, KindMalformed},
		{fmt.Errorf("%w: decode gemini response: EOF", llm.ErrMalformed), KindMalformed},
		{discovery.ErrConcurrentJobConflict, KindConflict},
		{ErrInvalidRequest, KindInvalidRequest},
		{errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestMapError_KeepsChain(t *testing.T) {
	base := fmt.Errorf("codex exited 1: %w", analysis.ErrUnavailable)
	err := MapError(base)

	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
	assert.ErrorIs(t, err, analysis.ErrUnavailable)
	assert.Same(t, ErrChatNotFound, MapError(ErrChatNotFound))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var mu sync.Mutex
	active := map[string]int{}
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("chat-%d", i%2)
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			defer unlock()

			mu.Lock()
			active[key]++
			if active[key] > maxActive {
				maxActive = active[key]
			}
			mu.Unlock()

			mu.Lock()
			active[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxActive)
	assert.Zero(t, k.size())
}
