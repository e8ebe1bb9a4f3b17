package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutFeasibility stores a feasibility analysis and returns its ID.
func (s *Store) PutFeasibility(ctx context.Context, f *Feasibility) (string, error) {
	if f.ProjectID == "" || f.Requirement == "" {
		return "", fmt.Errorf("feasibility requires project ID and requirement")
	}

	risks, err := marshalList(f.Risks)
	if err != nil {
		return "", fmt.Errorf("marshal risks: %w", err)
	}
	questions, err := marshalList(f.OpenQuestions)
	if err != nil {
		return "", fmt.Errorf("marshal open questions: %w", err)
	}
	breakdown, err := json.Marshal(f.TaskBreakdown)
	if err != nil {
		return "", fmt.Errorf("marshal task breakdown: %w", err)
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Feasibility == "" {
		f.Feasibility = "Unknown"
	}
	f.CreatedAt = time.Now().UTC()

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO feasibilities (
			id, project_id, requirement, context, high_level_design,
			risks, open_questions, technical_feasibility, rough_estimate,
			task_breakdown, chat_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.ProjectID, f.Requirement, nullString(f.Context), nullString(f.HighLevelDesign),
		risks, questions, f.Feasibility, nullString(f.RoughEstimate),
		string(breakdown), nullString(f.ChatID), f.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("put feasibility: %w", err)
	}

	return f.ID, nil
}

// GetFeasibility retrieves a stored feasibility analysis by ID.
func (s *Store) GetFeasibility(ctx context.Context, id string) (*Feasibility, error) {
	var f Feasibility
	var reqContext, design, estimate, chatID sql.NullString
	var risks, questions, breakdown string

	err := s.q.QueryRowContext(ctx, `
		SELECT id, project_id, requirement, context, high_level_design,
		       risks, open_questions, technical_feasibility, rough_estimate,
		       task_breakdown, chat_id, created_at
		FROM feasibilities
		WHERE id = ?
	`, id).Scan(
		&f.ID, &f.ProjectID, &f.Requirement, &reqContext, &design,
		&risks, &questions, &f.Feasibility, &estimate,
		&breakdown, &chatID, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feasibility %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query feasibility: %w", err)
	}

	f.Context = reqContext.String
	f.HighLevelDesign = design.String
	f.RoughEstimate = estimate.String
	f.ChatID = chatID.String

	if f.Risks, err = unmarshalList(risks); err != nil {
		return nil, fmt.Errorf("unmarshal risks: %w", err)
	}
	if f.OpenQuestions, err = unmarshalList(questions); err != nil {
		return nil, fmt.Errorf("unmarshal open questions: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &f.TaskBreakdown); err != nil {
		return nil, fmt.Errorf("unmarshal task breakdown: %w", err)
	}

	return &f, nil
}
