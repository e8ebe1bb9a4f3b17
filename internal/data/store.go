package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Role tags a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AnalysisType records which workflow created a chat session.
type AnalysisType string

const (
	AnalysisFeature        AnalysisType = "feature"
	AnalysisFeasibility    AnalysisType = "feasibility"
	AnalysisProjectFeature AnalysisType = "project_feature"
	AnalysisChat           AnalysisType = "chat"
)

// Project is a registered repository.
type Project struct {
	ID          string    `json:"project_id"`
	GitHubRepo  string    `json:"github_repo"`
	RepoPath    string    `json:"repo_path"`
	Description string    `json:"description,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
	TechStack   []string  `json:"tech_stack"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChatMessage is one entry of a chat history.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Chat is a persisted conversation anchored to one analysis result.
// AnalysisContext is written at creation and never updated.
type Chat struct {
	ID              string        `json:"chat_id"`
	ProjectID       string        `json:"project_id,omitempty"`
	FeatureID       string        `json:"feature_id,omitempty"`
	AnalysisType    AnalysisType  `json:"analysis_type"`
	AnalysisContext string        `json:"analysis_context"`
	History         []ChatMessage `json:"conversation_history"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ChatSpec describes a chat session to create.
type ChatSpec struct {
	ProjectID       string
	FeatureID       string
	AnalysisType    AnalysisType
	AnalysisContext string
}

// Feature is a product capability discovered in, or analysed against, a project.
type Feature struct {
	ID                string    `json:"feature_id"`
	ProjectID         string    `json:"project_id"`
	Name              string    `json:"feature_name"`
	Overview          string    `json:"high_level_overview"`
	HighLevelDesign   string    `json:"high_level_design,omitempty"`
	Scope             []string  `json:"scope"`
	Dependencies      []string  `json:"dependencies"`
	KeyConsiderations []string  `json:"key_considerations"`
	Limitations       []string  `json:"limitations"`
	LastQuery         string    `json:"last_query,omitempty"`
	ChatID            string    `json:"chat_id,omitempty"`
	DiscoveredAt      time.Time `json:"discovery_timestamp"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TaskBreakdown flags which kinds of work a requirement needs.
type TaskBreakdown struct {
	Raw            string `json:"raw_text,omitempty"`
	Design         bool   `json:"design"`
	Spike          bool   `json:"spike"`
	POC            bool   `json:"poc"`
	Implementation bool   `json:"implementation"`
	QA             bool   `json:"qa"`
}

// Feasibility is a stored feasibility analysis of one requirement.
type Feasibility struct {
	ID              string        `json:"feasibility_id"`
	ProjectID       string        `json:"project_id"`
	Requirement     string        `json:"requirement"`
	Context         string        `json:"context,omitempty"`
	HighLevelDesign string        `json:"high_level_design"`
	Risks           []string      `json:"risks"`
	OpenQuestions   []string      `json:"open_questions"`
	Feasibility     string        `json:"technical_feasibility"`
	RoughEstimate   string        `json:"rough_estimate"`
	TaskBreakdown   TaskBreakdown `json:"task_breakdown"`
	ChatID          string        `json:"chat_id,omitempty"`
	CreatedAt       time.Time     `json:"analysis_timestamp"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// nullString converts a string to sql.NullString.
// Returns NULL if the string is empty.
func nullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

// marshalList encodes a string slice as a JSON column. A nil slice is "[]".
func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalList decodes a JSON list column, tolerating empty values.
func unmarshalList(raw string) ([]string, error) {
	items := []string{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
