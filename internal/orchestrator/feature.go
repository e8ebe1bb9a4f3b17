package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
)

// FeatureAdapter analyses one capability of a project's repository.
type FeatureAdapter struct {
	store    *data.Store
	analysis *analysis.Service
}

// NewFeatureAdapter creates a feature adapter.
func NewFeatureAdapter(store *data.Store, svc *analysis.Service) *FeatureAdapter {
	return &FeatureAdapter{store: store, analysis: svc}
}

// Run analyses env.Query. With a FeatureID the stored feature is updated
// and keeps its existing chat session; otherwise a new feature session is
// requested.
func (a *FeatureAdapter) Run(ctx context.Context, env Envelope, _ *Session) (*Outcome, error) {
	if env.Query == "" {
		return nil, fmt.Errorf("%w: feature query is empty", ErrInvalidRequest)
	}
	if env.ProjectID == "" {
		return nil, fmt.Errorf("%w: feature analysis needs a project", ErrInvalidRequest)
	}

	project, err := a.store.GetProject(ctx, env.ProjectID)
	if err != nil {
		return nil, projectError(env.ProjectID, err)
	}

	var feature *data.Feature
	name := env.Query
	question := env.Query
	if env.FeatureID != "" {
		feature, err = a.store.GetFeature(ctx, env.ProjectID, env.FeatureID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, env.FeatureID)
			}
			return nil, fmt.Errorf("load feature: %w", err)
		}
		name = feature.Name
		question = fmt.Sprintf("Regarding the '%s' feature: %s", feature.Name, env.Query)
	}

	result, err := a.analysis.Feature(ctx, project.RepoPath, name, question)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Reply:   result.Overview,
		Feature: result,
	}

	if feature != nil && feature.ChatID != "" {
		out.SessionID = feature.ChatID
	} else {
		out.NewSession = &SessionSpec{
			ProjectID:       env.ProjectID,
			FeatureID:       env.FeatureID,
			AnalysisType:    data.AnalysisFeature,
			AnalysisContext: result.ContextText(),
		}
	}

	if feature != nil {
		updated := *feature
		updated.Overview = result.Overview
		updated.HighLevelDesign = result.HighLevelDesign
		updated.Scope = result.Scope
		updated.Dependencies = result.Dependencies
		updated.KeyConsiderations = result.KeyConsiderations
		updated.Limitations = result.Limitations
		updated.LastQuery = env.Query
		out.Persist = func(ctx context.Context, tx *data.Store, chatID string) (string, error) {
			updated.ChatID = chatID
			if err := tx.UpdateFeatureAnalysis(ctx, &updated); err != nil {
				return "", fmt.Errorf("store feature analysis: %w", err)
			}
			return updated.ID, nil
		}
	}

	return out, nil
}
