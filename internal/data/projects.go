package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateProject inserts a project. CreatedAt and UpdatedAt are set here.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		return fmt.Errorf("project ID cannot be empty")
	}

	techStack, err := marshalList(p.TechStack)
	if err != nil {
		return fmt.Errorf("marshal tech stack: %w", err)
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `
		INSERT INTO projects (
			id, github_repo, repo_path, description,
			summary, purpose, tech_stack, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.q.ExecContext(ctx, query,
		p.ID, p.GitHubRepo, p.RepoPath, nullString(p.Description),
		nullString(p.Summary), nullString(p.Purpose), techStack,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

const projectColumns = `
	id, github_repo, repo_path, description,
	summary, purpose, tech_stack, created_at, updated_at
`

// GetProject retrieves a project by ID. It returns ErrNotFound if absent.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query project: %w", err)
	}

	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// UpdateProjectSummary stores the generated summary, purpose and tech stack.
func (s *Store) UpdateProjectSummary(ctx context.Context, id, summary, purpose string, techStack []string) error {
	stack, err := marshalList(techStack)
	if err != nil {
		return fmt.Errorf("marshal tech stack: %w", err)
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE projects
		SET summary = ?, purpose = ?, tech_stack = ?, updated_at = ?
		WHERE id = ?
	`, nullString(summary), nullString(purpose), stack, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update project summary: %w", err)
	}

	return requireAffected(result, "project", id)
}

// TouchProject bumps updated_at, e.g. after a repository sync.
func (s *Store) TouchProject(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return requireAffected(result, "project", id)
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var description, summary, purpose sql.NullString
	var techStack string

	if err := row.Scan(
		&p.ID, &p.GitHubRepo, &p.RepoPath, &description,
		&summary, &purpose, &techStack, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Summary = summary.String
	p.Purpose = purpose.String

	stack, err := unmarshalList(techStack)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tech stack: %w", err)
	}
	p.TechStack = stack

	return &p, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
