package orchestrator

import (
	"fmt"
	"time"

	"github.com/normanking/pmcortex/internal/metrics"
	"github.com/normanking/pmcortex/internal/router"
)

// State is a step of one request's dispatch.
type State string

const (
	StateStart        State = "START"
	StateClassified   State = "CLASSIFIED"
	StateAgentRunning State = "AGENT_RUNNING"
	StateDone         State = "DONE"
	StateErrored      State = "ERRORED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

var transitions = map[State]State{
	StateStart:        StateClassified,
	StateClassified:   StateAgentRunning,
	StateAgentRunning: StateDone,
}

// dispatch tracks a single request from classification to a terminal state.
// It is created per call and never shared.
type dispatch struct {
	state   State
	intent  router.Intent
	trace   []State
	started time.Time
}

func newDispatch() *dispatch {
	return &dispatch{
		state:   StateStart,
		trace:   []State{StateStart},
		started: time.Now(),
	}
}

// transition advances to the next state. ERRORED is reachable from any
// non-terminal state; every other move must follow the fixed sequence.
func (d *dispatch) transition(to State) error {
	if d.state.Terminal() {
		return fmt.Errorf("dispatch already %s, cannot move to %s", d.state, to)
	}
	if to != StateErrored && transitions[d.state] != to {
		return fmt.Errorf("illegal transition %s -> %s", d.state, to)
	}

	d.state = to
	d.trace = append(d.trace, to)

	if to.Terminal() {
		intent := string(d.intent)
		if intent == "" {
			intent = "unknown"
		}
		metrics.DispatchTotal.WithLabelValues(intent, string(to)).Inc()
		metrics.DispatchDuration.WithLabelValues(intent).Observe(time.Since(d.started).Seconds())
	}
	return nil
}

// fail moves the dispatch to ERRORED and returns err mapped into the taxonomy.
func (d *dispatch) fail(err error) error {
	if !d.state.Terminal() {
		_ = d.transition(StateErrored)
	}
	return MapError(err)
}

// Trace returns the states visited so far.
func (d *dispatch) Trace() []State {
	out := make([]State, len(d.trace))
	copy(out, d.trace)
	return out
}
