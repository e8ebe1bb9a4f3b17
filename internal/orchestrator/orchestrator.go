// Package orchestrator routes every product-manager request through one
// entry point: classify, run the matching adapter, then persist the
// session changes. A request either completes fully or changes nothing.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/router"
)

// Session is a loaded chat session.
type Session = data.Chat

// SessionSpec describes a session an adapter wants created.
type SessionSpec = data.ChatSpec

// Envelope carries the fields of one request. Which fields are set
// decides the classification.
type Envelope struct {
	ProjectID   string `json:"project_id,omitempty"`
	ChatID      string `json:"chat_id,omitempty"`
	Message     string `json:"message,omitempty"`
	FeatureID   string `json:"feature_id,omitempty"`
	Query       string `json:"query,omitempty"`
	Requirement string `json:"requirement,omitempty"`
	Context     string `json:"context,omitempty"`
}

func (e Envelope) trimmed() Envelope {
	return Envelope{
		ProjectID:   strings.TrimSpace(e.ProjectID),
		ChatID:      strings.TrimSpace(e.ChatID),
		Message:     strings.TrimSpace(e.Message),
		FeatureID:   strings.TrimSpace(e.FeatureID),
		Query:       strings.TrimSpace(e.Query),
		Requirement: strings.TrimSpace(e.Requirement),
		Context:     strings.TrimSpace(e.Context),
	}
}

func (e Envelope) signals() router.Signals {
	return router.Signals{
		ChatID:      e.ChatID,
		FeatureID:   e.FeatureID,
		Message:     e.Message,
		Query:       e.Query,
		Requirement: e.Requirement,
		HasContext:  e.ChatID != "",
	}
}

// Outcome is what an adapter produced. Nothing in it is stored until the
// dispatch reaches DONE.
type Outcome struct {
	Reply       string
	Feature     *analysis.FeatureResult
	Feasibility *analysis.FeasibilityResult

	// NewEntries are appended to the session history.
	NewEntries []data.ChatMessage

	// SessionID names an existing session the result belongs to.
	SessionID string

	// NewSession is created when neither the envelope nor SessionID
	// names a session.
	NewSession *SessionSpec

	// Persist stores adapter-specific records once the session is known
	// and returns the record's ID. It runs in the commit transaction and
	// must write through tx.
	Persist func(ctx context.Context, tx *data.Store, chatID string) (string, error)
}

// Adapter runs one intent.
type Adapter interface {
	Run(ctx context.Context, env Envelope, session *Session) (*Outcome, error)
}

// Response is returned to the caller of Run.
type Response struct {
	ChatID      string                      `json:"chat_id"`
	Intent      router.Intent               `json:"request_type"`
	Path        router.ClassificationPath   `json:"classification_path"`
	Reply       string                      `json:"response,omitempty"`
	Feature     *analysis.FeatureResult     `json:"feature,omitempty"`
	Feasibility *analysis.FeasibilityResult `json:"feasibility,omitempty"`
	RecordID    string                      `json:"record_id,omitempty"`
	Trace       []State                     `json:"-"`
}

// Config configures an Orchestrator.
type Config struct {
	Store      *data.Store
	Classifier *router.Classifier
	Analysis   *analysis.Service

	// Completer answers chat turns.
	Completer analysis.Completer

	// HistoryTurns bounds the history shown to the chat model.
	HistoryTurns int
}

// Orchestrator is the single entry point for chat and analysis requests.
type Orchestrator struct {
	store      *data.Store
	classifier *router.Classifier
	adapters   map[router.Intent]Adapter
	chatLocks  *keyedMutex
	log        *logging.Logger
}

// New creates an orchestrator with the chat, feature and feasibility adapters.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("orchestrator requires a store")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("orchestrator requires a classifier")
	}
	if cfg.Analysis == nil {
		return nil, fmt.Errorf("orchestrator requires an analysis service")
	}
	if cfg.Completer == nil {
		cfg.Completer = cfg.Analysis.Completer
	}

	return &Orchestrator{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		adapters: map[router.Intent]Adapter{
			router.IntentChat:                NewChatAdapter(cfg.Store, cfg.Completer, cfg.HistoryTurns),
			router.IntentFeatureAnalysis:     NewFeatureAdapter(cfg.Store, cfg.Analysis),
			router.IntentFeasibilityAnalysis: NewFeasibilityAdapter(cfg.Store, cfg.Analysis),
		},
		chatLocks: newKeyedMutex(),
		log:       logging.Global().WithComponent("orchestrator"),
	}, nil
}

// Run handles one request end to end. Requests naming the same chat are
// serialised from session load to history append.
func (o *Orchestrator) Run(ctx context.Context, env Envelope) (*Response, error) {
	env = env.trimmed()

	var session *Session
	if env.ChatID != "" {
		unlock := o.chatLocks.Lock(env.ChatID)
		defer unlock()

		chat, err := o.store.GetChat(ctx, env.ChatID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrChatNotFound, env.ChatID)
			}
			return nil, fmt.Errorf("load chat: %w", err)
		}
		if env.ProjectID == "" {
			env.ProjectID = chat.ProjectID
		} else if chat.ProjectID != "" && chat.ProjectID != env.ProjectID {
			return nil, fmt.Errorf("%w: chat %s belongs to project %s", ErrInvalidRequest, chat.ID, chat.ProjectID)
		}
		session = chat
	}

	d := newDispatch()
	decision, out, err := o.dispatch(ctx, d, env, session)
	if err != nil {
		o.log.Warn("[Orchestrator] %s request failed after %v: %v", d.intent, d.trace, err)
		return nil, err
	}

	chatID, recordID, err := o.commit(ctx, session, out)
	if err != nil {
		o.log.Error("[Orchestrator] persist %s result: %v", decision.Intent, err)
		return nil, err
	}

	o.log.Info("[Orchestrator] %s via %s path completed (chat %s)", decision.Intent, decision.Path, chatID)

	return &Response{
		ChatID:      chatID,
		Intent:      decision.Intent,
		Path:        decision.Path,
		Reply:       out.Reply,
		Feature:     out.Feature,
		Feasibility: out.Feasibility,
		RecordID:    recordID,
		Trace:       d.Trace(),
	}, nil
}

// dispatch classifies the envelope and runs exactly one adapter. It holds no
// state between calls and never retries.
func (o *Orchestrator) dispatch(ctx context.Context, d *dispatch, env Envelope, session *Session) (*router.Decision, *Outcome, error) {
	decision, err := o.classifier.Classify(ctx, env.signals())
	if err != nil {
		return nil, nil, d.fail(err)
	}
	d.intent = decision.Intent
	if err := d.transition(StateClassified); err != nil {
		return nil, nil, d.fail(err)
	}

	adapter, ok := o.adapters[decision.Intent]
	if !ok {
		return nil, nil, d.fail(fmt.Errorf("%w: no adapter for %q", ErrClassification, decision.Intent))
	}
	env = applyDecision(env, decision)

	if err := d.transition(StateAgentRunning); err != nil {
		return nil, nil, d.fail(err)
	}
	o.log.Debug("[Orchestrator] running %s adapter (path=%s)", decision.Intent, decision.Path)

	out, err := adapter.Run(ctx, env, session)
	if err != nil {
		return nil, nil, d.fail(err)
	}

	if err := d.transition(StateDone); err != nil {
		return nil, nil, d.fail(err)
	}
	return decision, out, nil
}

// applyDecision leaves exactly one primary field set: the one the intent
// reads, holding the text the classifier decided on. The other two are
// cleared so an adapter never acts on text that was not classified.
func applyDecision(env Envelope, decision *router.Decision) Envelope {
	env.Message, env.Query, env.Requirement = "", "", ""
	switch decision.Intent {
	case router.IntentChat:
		env.Message = decision.Input
	case router.IntentFeatureAnalysis:
		env.Query = decision.Input
	case router.IntentFeasibilityAnalysis:
		env.Requirement = decision.Input
	}
	return env
}

// commit stores a finished outcome in one transaction and returns the chat
// it belongs to and the adapter's record ID. Analysis results always land
// in their own session so an existing chat's context is never replaced.
func (o *Orchestrator) commit(ctx context.Context, session *Session, out *Outcome) (chatID, recordID string, err error) {
	err = o.store.InTx(ctx, func(tx *data.Store) error {
		chatID = out.SessionID
		if chatID == "" && out.NewSession != nil {
			chat, err := tx.CreateChat(ctx, *out.NewSession)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			chatID = chat.ID
		}
		if chatID == "" && session != nil {
			chatID = session.ID
		}
		if chatID == "" {
			return fmt.Errorf("outcome has no session")
		}

		if len(out.NewEntries) > 0 {
			if _, err := tx.AppendHistory(ctx, chatID, out.NewEntries); err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}

		if out.Persist != nil {
			id, err := out.Persist(ctx, tx, chatID)
			if err != nil {
				return err
			}
			recordID = id
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return chatID, recordID, nil
}
