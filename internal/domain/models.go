// Package domain defines the core domain models for the decision-support backend.
package domain

import (
	"strconv"
	"time"
)

// PatientRecord is the decoded patient document uploaded at intake.
// No schema is enforced beyond the presence of patient_id; all clinical
// sub-sections (vitals, labs, history) are optional.
type PatientRecord map[string]any

// PatientID extracts the required patient identifier from the record.
// Returns "" when the field is absent or not representable as a string.
func (p PatientRecord) PatientID() string {
	switch v := p["patient_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Session is the per-intake state accumulated across augmentations.
type Session struct {
	ID           string
	Patient      PatientRecord
	Notes        []string
	Probability  float64
	PatientID    string
	ArtifactPath string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MeasureItem is a single recommended clinical measure.
type MeasureItem struct {
	Measure string `json:"measure"`
	Reason  string `json:"reason,omitempty"`
}

// SimilarCaseItem is an illustrative measure frequency among similar cases.
type SimilarCaseItem struct {
	Measure   string  `json:"measure"`
	Frequency float64 `json:"frequency"` // 0.0 - 1.0
}

// InferResponse is the response shape shared by intake and augmentation.
type InferResponse struct {
	SessionID    string            `json:"session_id"`
	Probability  float64           `json:"probability"`
	Recommended  []MeasureItem     `json:"recommended"`
	SimilarCases []SimilarCaseItem `json:"similar_cases"`
}

// AugmentRequest is the request body for adding a clinical note to a session.
type AugmentRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// PipelineMode identifies which variant of the external model pipeline ran.
type PipelineMode string

const (
	PipelineModePlain    PipelineMode = "plain"
	PipelineModeFeedback PipelineMode = "feedback"
)

// PipelineRun is the audit record of a single external pipeline invocation.
type PipelineRun struct {
	RunID     string       `json:"run_id"`
	SessionID string       `json:"session_id"`
	Mode      PipelineMode `json:"mode"`
	Status    string       `json:"status"` // succeeded, failed
	Error     string       `json:"error,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}
