package server

import (
	"errors"
	"net/http"

	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/orchestrator"
	"github.com/normanking/pmcortex/internal/projects"
)

// kindBadRequest is reported for malformed request bodies.
const kindBadRequest = "bad_request"

var statusByKind = map[string]int{
	orchestrator.KindClassification: http.StatusUnprocessableEntity,
	orchestrator.KindChatNotFound:   http.StatusNotFound,
	orchestrator.KindNotFound:       http.StatusNotFound,
	orchestrator.KindUnavailable:    http.StatusServiceUnavailable,
	orchestrator.KindTimeout:        http.StatusGatewayTimeout,
	orchestrator.KindMalformed:      http.StatusBadGateway,
	orchestrator.KindConflict:       http.StatusConflict,
	orchestrator.KindInvalidRequest: http.StatusBadRequest,
	kindBadRequest:                  http.StatusBadRequest,
}

// statusFor maps an error to its HTTP status and kind.
func statusFor(err error) (int, string) {
	kind := orchestrator.Kind(err)
	if kind == orchestrator.KindInternal &&
		(errors.Is(err, errBadRequest) || errors.Is(err, projects.ErrInvalidRequest)) {
		kind = kindBadRequest
	}
	if kind == orchestrator.KindInternal && errors.Is(err, data.ErrNotFound) {
		kind = orchestrator.KindNotFound
	}

	if status, ok := statusByKind[kind]; ok {
		return status, kind
	}
	return http.StatusInternalServerError, kind
}
