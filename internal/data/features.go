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
// FEATURES
// ═══════════════════════════════════════════════════════════════════════════════

// PutFeature inserts a feature record and returns its ID. A feature name
// is unique within a project.
func (s *Store) PutFeature(ctx context.Context, f *Feature) (string, error) {
	if f.ProjectID == "" || f.Name == "" {
		return "", fmt.Errorf("feature requires project ID and name")
	}

	lists, err := marshalFeatureLists(f)
	if err != nil {
		return "", err
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.DiscoveredAt.IsZero() {
		f.DiscoveredAt = now
	}
	f.UpdatedAt = now

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO project_features (
			id, project_id, feature_name, high_level_overview, high_level_design,
			scope, dependencies, key_considerations, limitations,
			last_query, chat_id, discovered_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.ProjectID, f.Name, nullString(f.Overview), nullString(f.HighLevelDesign),
		lists[0], lists[1], lists[2], lists[3],
		nullString(f.LastQuery), nullString(f.ChatID), f.DiscoveredAt, f.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("put feature: %w", err)
	}

	return f.ID, nil
}

const featureColumns = `
	id, project_id, feature_name, high_level_overview, high_level_design,
	scope, dependencies, key_considerations, limitations,
	last_query, chat_id, discovered_at, updated_at
`

// GetFeature retrieves a feature of a project. It returns ErrNotFound if
// the feature does not exist or belongs to another project.
func (s *Store) GetFeature(ctx context.Context, projectID, featureID string) (*Feature, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+featureColumns+` FROM project_features WHERE id = ? AND project_id = ?`,
		featureID, projectID)

	f, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feature %s: %w", featureID, ErrNotFound)
		}
		return nil, fmt.Errorf("query feature: %w", err)
	}

	return f, nil
}

// ListFeatures returns the features of a project in discovery order.
func (s *Store) ListFeatures(ctx context.Context, projectID string) ([]*Feature, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+featureColumns+` FROM project_features WHERE project_id = ? ORDER BY discovered_at ASC, feature_name ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := []*Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}

	return features, nil
}

// CountFeatures returns how many features a project has.
func (s *Store) CountFeatures(ctx context.Context, projectID string) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_features WHERE project_id = ?`, projectID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}

// DeleteFeatures removes every feature of a project and returns how many
// were removed. Chat sessions that referenced them are kept.
func (s *Store) DeleteFeatures(ctx context.Context, projectID string) (int, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM project_features WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete features: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(n), nil
}

// UpdateFeatureAnalysis replaces the analysis columns of a feature after a
// re-analysis. An empty chatID leaves the stored chat link unchanged.
func (s *Store) UpdateFeatureAnalysis(ctx context.Context, f *Feature) error {
	lists, err := marshalFeatureLists(f)
	if err != nil {
		return err
	}

	f.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE project_features
		SET high_level_overview = ?, high_level_design = ?,
		    scope = ?, dependencies = ?, key_considerations = ?, limitations = ?,
		    last_query = ?, chat_id = COALESCE(?, chat_id), updated_at = ?
		WHERE id = ? AND project_id = ?
	`, nullString(f.Overview), nullString(f.HighLevelDesign),
		lists[0], lists[1], lists[2], lists[3],
		nullString(f.LastQuery), nullString(f.ChatID), f.UpdatedAt,
		f.ID, f.ProjectID)
	if err != nil {
		return fmt.Errorf("update feature analysis: %w", err)
	}

	return requireAffected(result, "feature", f.ID)
}

func marshalFeatureLists(f *Feature) ([4]string, error) {
	var out [4]string
	for i, list := range [][]string{f.Scope, f.Dependencies, f.KeyConsiderations, f.Limitations} {
		encoded, err := marshalList(list)
		if err != nil {
			return out, fmt.Errorf("marshal feature lists: %w", err)
		}
		out[i] = encoded
	}
	return out, nil
}

func scanFeature(row scanner) (*Feature, error) {
	var f Feature
	var overview, design, lastQuery, chatID sql.NullString
	var scope, deps, considerations, limitations string

	if err := row.Scan(
		&f.ID, &f.ProjectID, &f.Name, &overview, &design,
		&scope, &deps, &considerations, &limitations,
		&lastQuery, &chatID, &f.DiscoveredAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}

	f.Overview = overview.String
	f.HighLevelDesign = design.String
	f.LastQuery = lastQuery.String
	f.ChatID = chatID.String

	var err error
	if f.Scope, err = unmarshalList(scope); err != nil {
		return nil, fmt.Errorf("unmarshal scope: %w", err)
	}
	if f.Dependencies, err = unmarshalList(deps); err != nil {
		return nil, fmt.Errorf("unmarshal dependencies: %w", err)
	}
	if f.KeyConsiderations, err = unmarshalList(considerations); err != nil {
		return nil, fmt.Errorf("unmarshal key considerations: %w", err)
	}
	if f.Limitations, err = unmarshalList(limitations); err != nil {
		return nil, fmt.Errorf("unmarshal limitations: %w", err)
	}

	return &f, nil
}
