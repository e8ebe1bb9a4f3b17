package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/discovery"
	"github.com/normanking/pmcortex/internal/llm"
	"github.com/normanking/pmcortex/internal/router"
)

// Error taxonomy returned to callers of the orchestrator.
var (
	ErrClassification        = errors.New("request could not be classified")
	ErrChatNotFound          = errors.New("chat not found")
	ErrProjectNotFound       = errors.New("project not found")
	ErrAnalysisUnavailable   = errors.New("analysis unavailable")
	ErrAnalysisTimeout       = errors.New("analysis timed out")
	ErrMalformedResult       = errors.New("malformed analysis result")
	ErrConcurrentJobConflict = errors.New("concurrent job conflict")

	// ErrInvalidRequest marks an envelope that is missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrFeatureNotFound is reported with the same kind as ErrProjectNotFound.
var ErrFeatureNotFound = fmt.Errorf("feature not found: %w", ErrProjectNotFound)

// Kinds returned by Kind.
const (
	KindClassification = "classification_error"
	KindChatNotFound   = "chat_not_found"
	KindNotFound       = "not_found"
	KindUnavailable    = "analysis_unavailable"
	KindTimeout        = "analysis_timeout"
	KindMalformed      = "malformed_result"
	KindConflict       = "concurrent_job_conflict"
	KindInvalidRequest = "invalid_request"
	KindInternal       = "internal"
)

var taxonomy = []error{
	ErrClassification,
	ErrChatNotFound,
	ErrProjectNotFound,
	ErrAnalysisUnavailable,
	ErrAnalysisTimeout,
	ErrMalformedResult,
	ErrConcurrentJobConflict,
	ErrInvalidRequest,
}

// MapError translates errors from the lower layers into the taxonomy,
// keeping the original error in the chain. Errors already in the taxonomy
// and unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	switch {
	case errors.Is(err, router.ErrClassification):
		return fmt.Errorf("%w: %w", ErrClassification, err)
	case errors.Is(err, discovery.ErrProjectNotFound):
		return fmt.Errorf("%w: %w", ErrProjectNotFound, err)
	case errors.Is(err, discovery.ErrConcurrentJobConflict):
		return fmt.Errorf("%w: %w", ErrConcurrentJobConflict, err)
	case errors.Is(err, analysis.ErrTimeout),
		errors.Is(err, llm.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrAnalysisTimeout, err)
	case errors.Is(err, analysis.ErrUnavailable), errors.Is(err, llm.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	case errors.Is(err, analysis.ErrMalformed),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, llm.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	return err
}

// Kind returns a stable identifier for err's place in the taxonomy.
func Kind(err error) string {
	err = MapError(err)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrClassification):
		return KindClassification
	case errors.Is(err, ErrChatNotFound):
		return KindChatNotFound
	case errors.Is(err, ErrProjectNotFound):
		return KindNotFound
	case errors.Is(err, ErrAnalysisTimeout):
		return KindTimeout
	case errors.Is(err, ErrAnalysisUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrMalformedResult):
		return KindMalformed
	case errors.Is(err, ErrConcurrentJobConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
