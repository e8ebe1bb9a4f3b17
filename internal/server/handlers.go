package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/orchestrator"
	"github.com/normanking/pmcortex/internal/projects"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed or incomplete request bodies.
var errBadRequest = errors.New("bad request")

// ═══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.deps.Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Database:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if s.deps.Store != nil {
		if err := s.deps.Store.Health(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROJECTS
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRegisterProject(w http.ResponseWriter, r *http.Request) {
	var req projects.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	project, err := s.deps.Projects.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*data.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.project(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	project, err := s.project(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	features, err := s.deps.Store.ListFeatures(r.Context(), project.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": project.ID,
		"features":   features,
	})
}

// project loads the project named by the route, mapping a miss to
// orchestrator.ErrProjectNotFound.
func (s *Server) project(r *http.Request) (*data.Project, error) {
	id := chi.URLParam(r, "projectID")
	project, err := s.deps.Store.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", orchestrator.ErrProjectNotFound, id)
		}
		return nil, err
	}
	return project, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// DISCOVERY
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEnqueueDiscovery(w http.ResponseWriter, r *http.Request) {
	var req DiscoveryRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.deps.Discovery.Enqueue(r.Context(), chi.URLParam(r, "projectID"), req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleDiscoveryStatus(w http.ResponseWriter, r *http.Request) {
	project, err := s.project(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Discovery.Status(r.Context(), project.ID))
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYSIS AND CHAT
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	var req FeasibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Requirement) == "" {
		s.writeError(w, fmt.Errorf("%w: requirement is required", errBadRequest))
		return
	}

	s.orchestrate(w, r, orchestrator.Envelope{
		ProjectID:   chi.URLParam(r, "projectID"),
		Requirement: req.Requirement,
		Context:     req.Context,
	})
}

func (s *Server) handleFeatureQuery(w http.ResponseWriter, r *http.Request) {
	var req FeatureQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, fmt.Errorf("%w: query is required", errBadRequest))
		return
	}

	s.orchestrate(w, r, orchestrator.Envelope{
		ProjectID: chi.URLParam(r, "projectID"),
		FeatureID: chi.URLParam(r, "featureID"),
		Query:     req.Query,
	})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}

	s.orchestrate(w, r, orchestrator.Envelope{
		ChatID:  chi.URLParam(r, "chatID"),
		Message: req.Message,
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	chat, err := s.deps.Store.GetChat(r.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			err = fmt.Errorf("%w: %s", orchestrator.ErrChatNotFound, id)
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleGetFeasibility(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.Store.GetFeasibility(r.Context(), chi.URLParam(r, "feasibilityID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	var env orchestrator.Envelope
	if err := decodeJSON(r, &env); err != nil {
		s.writeError(w, err)
		return
	}
	s.orchestrate(w, r, env)
}

func (s *Server) orchestrate(w http.ResponseWriter, r *http.Request, env orchestrator.Envelope) {
	resp, err := s.deps.Orchestrator.Run(r.Context(), env)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("[Server] %s: %v", kind, err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}
