package orchestrator

import (
	"context"
	"fmt"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
)

// FeasibilityAdapter assesses a new requirement against a project.
type FeasibilityAdapter struct {
	store    *data.Store
	analysis *analysis.Service
}

// NewFeasibilityAdapter creates a feasibility adapter.
func NewFeasibilityAdapter(store *data.Store, svc *analysis.Service) *FeasibilityAdapter {
	return &FeasibilityAdapter{store: store, analysis: svc}
}

// Run analyses env.Requirement and always requests a new feasibility session.
func (a *FeasibilityAdapter) Run(ctx context.Context, env Envelope, _ *Session) (*Outcome, error) {
	if env.Requirement == "" {
		return nil, fmt.Errorf("%w: requirement is empty", ErrInvalidRequest)
	}
	if env.ProjectID == "" {
		return nil, fmt.Errorf("%w: feasibility analysis needs a project", ErrInvalidRequest)
	}

	project, err := a.store.GetProject(ctx, env.ProjectID)
	if err != nil {
		return nil, projectError(env.ProjectID, err)
	}

	result, err := a.analysis.Feasibility(ctx, project.RepoPath, env.Requirement, env.Context)
	if err != nil {
		return nil, err
	}

	record := &data.Feasibility{
		ProjectID:       env.ProjectID,
		Requirement:     result.Requirement,
		Context:         result.Context,
		HighLevelDesign: result.HighLevelDesign,
		Risks:           result.Risks,
		OpenQuestions:   result.OpenQuestions,
		Feasibility:     result.Feasibility,
		RoughEstimate:   result.RoughEstimate,
		TaskBreakdown: data.TaskBreakdown{
			Raw:            result.TaskBreakdown.Raw,
			Design:         result.TaskBreakdown.Design,
			Spike:          result.TaskBreakdown.Spike,
			POC:            result.TaskBreakdown.POC,
			Implementation: result.TaskBreakdown.Implementation,
			QA:             result.TaskBreakdown.QA,
		},
	}

	return &Outcome{
		Reply:       result.HighLevelDesign,
		Feasibility: result,
		NewSession: &SessionSpec{
			ProjectID:       env.ProjectID,
			AnalysisType:    data.AnalysisFeasibility,
			AnalysisContext: result.ContextText(),
		},
		Persist: func(ctx context.Context, tx *data.Store, chatID string) (string, error) {
			record.ChatID = chatID
			id, err := tx.PutFeasibility(ctx, record)
			if err != nil {
				return "", fmt.Errorf("store feasibility: %w", err)
			}
			return id, nil
		},
	}, nil
}
