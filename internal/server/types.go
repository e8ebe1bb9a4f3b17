// Package server exposes the HTTP API for projects, discovery, analysis
// and chat.
package server

import (
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownTimeout is the graceful shutdown timeout (default: 10s)
	ShutdownTimeout time.Duration
}

// DefaultConfig returns defaults suited to long-running analysis requests.
func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// API REQUEST TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// DiscoveryRequest is the body of POST /api/v1/projects/{projectID}/discovery.
type DiscoveryRequest struct {
	Force bool `json:"force"`
}

// FeasibilityRequest is the body of POST /api/v1/projects/{projectID}/feasibility.
type FeasibilityRequest struct {
	Requirement string `json:"requirement"`
	Context     string `json:"context,omitempty"`
}

// FeatureQueryRequest is the body of POST .../features/{featureID}/query.
type FeatureQueryRequest struct {
	Query string `json:"query"`
}

// ChatMessageRequest is the body of POST /api/v1/chats/{chatID}/messages.
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// API RESPONSE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
