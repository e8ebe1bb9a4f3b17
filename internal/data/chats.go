package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT SESSIONS
// ═══════════════════════════════════════════════════════════════════════════════

// CreateChat creates a chat session with an empty history and returns it.
// The analysis context is fixed from here on.
func (s *Store) CreateChat(ctx context.Context, spec ChatSpec) (*Chat, error) {
	if spec.AnalysisType == "" {
		return nil, fmt.Errorf("analysis type cannot be empty")
	}

	now := time.Now().UTC()
	chat := &Chat{
		ID:              uuid.NewString(),
		ProjectID:       spec.ProjectID,
		FeatureID:       spec.FeatureID,
		AnalysisType:    spec.AnalysisType,
		AnalysisContext: spec.AnalysisContext,
		History:         []ChatMessage{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO chats (
			id, project_id, feature_id, analysis_type, analysis_context,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, chat.ID, nullString(chat.ProjectID), nullString(chat.FeatureID),
		string(chat.AnalysisType), chat.AnalysisContext, now, now)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	return chat, nil
}

// GetChat retrieves a chat session with its full history in order.
// It returns ErrNotFound if the chat does not exist.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	chat, err := s.getChatHeader(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.History(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	chat.History = history

	return chat, nil
}

func (s *Store) getChatHeader(ctx context.Context, id string) (*Chat, error) {
	var chat Chat
	var projectID, featureID sql.NullString
	var analysisType string

	err := s.q.QueryRowContext(ctx, `
		SELECT id, project_id, feature_id, analysis_type, analysis_context, created_at, updated_at
		FROM chats
		WHERE id = ?
	`, id).Scan(
		&chat.ID, &projectID, &featureID, &analysisType, &chat.AnalysisContext,
		&chat.CreatedAt, &chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}

	chat.ProjectID = projectID.String
	chat.FeatureID = featureID.String
	chat.AnalysisType = AnalysisType(analysisType)

	return &chat, nil
}

// History returns the messages of a chat in insertion order. A positive
// limit keeps only the most recent limit messages.
func (s *Store) History(ctx context.Context, chatID string, limit int) ([]ChatMessage, error) {
	query := `
		SELECT role, content, created_at FROM chat_messages
		WHERE chat_id = ?
		ORDER BY seq ASC
	`
	args := []any{chatID}
	if limit > 0 {
		query = `
			SELECT role, content, created_at FROM (
				SELECT seq, role, content, created_at FROM chat_messages
				WHERE chat_id = ?
				ORDER BY seq DESC
				LIMIT ?
			) ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	history := []ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = Role(role)
		history = append(history, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return history, nil
}

// AppendHistory appends entries to a chat in one transaction and returns
// the updated session. Entries keep their slice order. Either all entries
// are stored or none are.
func (s *Store) AppendHistory(ctx context.Context, chatID string, entries []ChatMessage) (*Chat, error) {
	if len(entries) == 0 {
		return s.GetChat(ctx, chatID)
	}

	for i, e := range entries {
		if e.Role != RoleUser && e.Role != RoleAssistant {
			return nil, fmt.Errorf("entry %d: invalid role %q", i, e.Role)
		}
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM chats WHERE id = ?`, chatID).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
			}
			return fmt.Errorf("lookup chat: %w", err)
		}

		var last int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE chat_id = ?`, chatID,
		).Scan(&last); err != nil {
			return fmt.Errorf("read history tail: %w", err)
		}

		now := time.Now().UTC()
		for i, e := range entries {
			createdAt := e.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chat_messages (chat_id, seq, role, content, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, chatID, last+int64(i)+1, string(e.Role), e.Content, createdAt); err != nil {
				return fmt.Errorf("insert message %d: %w", i, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, now, chatID); err != nil {
			return fmt.Errorf("update chat activity: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	return s.GetChat(ctx, chatID)
}

// ListChats returns the chat sessions of a project, newest first, without history.
func (s *Store) ListChats(ctx context.Context, projectID string) ([]*Chat, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, project_id, feature_id, analysis_type, analysis_context, created_at, updated_at
		FROM chats
		WHERE project_id = ?
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		var chat Chat
		var pid, fid sql.NullString
		var analysisType string
		if err := rows.Scan(&chat.ID, &pid, &fid, &analysisType, &chat.AnalysisContext,
			&chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chat.ProjectID = pid.String
		chat.FeatureID = fid.String
		chat.AnalysisType = AnalysisType(analysisType)
		chats = append(chats, &chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}
