package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
)

// DefaultHistoryTurns is how many recent history entries a chat prompt sees.
const DefaultHistoryTurns = 20

// ChatSystemPrompt frames chat replies for a product audience.
const ChatSystemPrompt = `You are a helpful product strategy advisor helping a product manager understand their codebase and features.
Write in business-friendly language. Focus on product impact, user experience, and business considerations.
Avoid technical jargon, code references, or file names. Be conversational and helpful.`

// ChatAdapter answers a follow-up message using the session's analysis
// context and recent history.
type ChatAdapter struct {
	store        *data.Store
	llm          analysis.Completer
	historyTurns int
}

// NewChatAdapter creates a chat adapter. A non-positive historyTurns uses
// DefaultHistoryTurns.
func NewChatAdapter(store *data.Store, llm analysis.Completer, historyTurns int) *ChatAdapter {
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	return &ChatAdapter{store: store, llm: llm, historyTurns: historyTurns}
}

// Run produces one reply and the user/assistant entries to append.
func (a *ChatAdapter) Run(ctx context.Context, env Envelope, session *Session) (*Outcome, error) {
	if env.Message == "" {
		return nil, fmt.Errorf("%w: chat message is empty", ErrInvalidRequest)
	}

	out := &Outcome{}
	var analysisContext string
	var history []data.ChatMessage

	if session != nil {
		analysisContext = session.AnalysisContext
		history = session.History
	} else {
		if env.ProjectID == "" {
			return nil, fmt.Errorf("%w: a chat without a session needs a project", ErrInvalidRequest)
		}
		if _, err := a.store.GetProject(ctx, env.ProjectID); err != nil {
			return nil, projectError(env.ProjectID, err)
		}
		out.NewSession = &SessionSpec{
			ProjectID:    env.ProjectID,
			AnalysisType: data.AnalysisChat,
		}
	}

	prompt := BuildChatPrompt(analysisContext, lastTurns(history, a.historyTurns), env.Message)
	reply, err := a.llm.Complete(ctx, ChatSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("chat reply: %w", err)
	}

	out.Reply = reply
	out.NewEntries = []data.ChatMessage{
		{Role: data.RoleUser, Content: env.Message},
		{Role: data.RoleAssistant, Content: reply},
	}
	return out, nil
}

// BuildChatPrompt lays out the analysis context, prior turns and the new
// message for the completion model.
func BuildChatPrompt(analysisContext string, history []data.ChatMessage, message string) string {
	var b strings.Builder

	if analysisContext != "" {
		fmt.Fprintf(&b, "Previous Analysis Context:\n%s\n\n", analysisContext)
	}

	if len(history) > 0 {
		b.WriteString("Conversation History:\n")
		for _, msg := range history {
			label := "Assistant"
			if msg.Role == data.RoleUser {
				label = "Product Manager"
			}
			fmt.Fprintf(&b, "%s: %s\n\n", label, msg.Content)
		}
	}

	fmt.Fprintf(&b, "Product Manager: %s\n\nAssistant:", message)
	return b.String()
}

func lastTurns(history []data.ChatMessage, n int) []data.ChatMessage {
	if n > 0 && len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func projectError(projectID string, err error) error {
	if errors.Is(err, data.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return fmt.Errorf("load project: %w", err)
}
