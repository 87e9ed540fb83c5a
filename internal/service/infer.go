package service

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/graphcare/backend/internal/domain"
	"github.com/graphcare/backend/internal/recommend"
	"github.com/graphcare/backend/internal/risk"
	"github.com/graphcare/backend/internal/similar"
)

// Intake establishes a session from a raw patient document: validate, score,
// persist the payload, run the plain model pipeline, create the session.
// On pipeline failure no session is created.
func (s *Service) Intake(ctx context.Context, raw []byte) (*domain.InferResponse, error) {
	var patient domain.PatientRecord
	if err := json.Unmarshal(raw, &patient); err != nil {
		return nil, &domain.ValidationError{Msg: "无法解析JSON内容"}
	}
	patientID := patient.PatientID()
	if patientID == "" {
		return nil, &domain.ValidationError{Msg: "缺少patient_id字段"}
	}

	prob := risk.Score(patient)
	sessionID := uuid.New().String()

	artifactPath, err := s.artifacts.SavePatient(sessionID, raw)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	names, err := s.model.Recommend(ctx, patientID)
	s.recordRun(ctx, sessionID, domain.PipelineModePlain, started, err)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &domain.Session{
		ID:           sessionID,
		Patient:      patient,
		Probability:  prob,
		PatientID:    patientID,
		ArtifactPath: artifactPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.sessions.Create(sess)

	if s.audit != nil {
		if err := s.audit.RecordSession(ctx, sess); err != nil {
			log.Printf("ERROR: failed to record session audit: %v", err)
			// Continue anyway - audit failure shouldn't block the request
		}
	}

	return s.buildResponse(sessionID, prob, names, patient), nil
}

// Augment appends a clinical note to an existing session, recomputes the
// probability from the full note history, and runs the feedback pipeline.
// The note append and probability update commit even when the pipeline
// fails; there is no rollback.
func (s *Service) Augment(ctx context.Context, sessionID, text string) (*domain.InferResponse, error) {
	var (
		patient   domain.PatientRecord
		patientID string
		prob      float64
		seq       int
	)
	err := s.sessions.Update(sessionID, func(sess *domain.Session) error {
		sess.Notes = append(sess.Notes, text)
		sess.Probability = risk.Recompute(sess.Patient, sess.Notes)
		patient = sess.Patient
		patientID = sess.PatientID
		prob = sess.Probability
		seq = len(sess.Notes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		noteID := "note_" + uuid.New().String()[:8]
		if err := s.audit.RecordNote(ctx, noteID, sessionID, seq, text, prob); err != nil {
			log.Printf("ERROR: failed to record note audit: %v", err)
		}
	}

	started := time.Now()
	names, err := s.model.RecommendWithFeedback(ctx, patientID, text)
	s.recordRun(ctx, sessionID, domain.PipelineModeFeedback, started, err)
	if err != nil {
		return nil, err
	}

	return s.buildResponse(sessionID, prob, names, patient), nil
}

// buildResponse assembles the shared intake/augment response shape. Model
// names become the recommended measures; when the model degrades to an empty
// list the rule-based measures stand in.
func (s *Service) buildResponse(sessionID string, prob float64, names []string, patient domain.PatientRecord) *domain.InferResponse {
	recs := make([]domain.MeasureItem, 0, len(names))
	for _, name := range names {
		recs = append(recs, domain.MeasureItem{Measure: name, Reason: "模型Top-K推荐"})
	}
	if len(recs) == 0 {
		recs = recommend.Measures(prob, patient)
	}
	return &domain.InferResponse{
		SessionID:    sessionID,
		Probability:  round3(prob),
		Recommended:  recs,
		SimilarCases: similar.Cases(prob, sessionID),
	}
}

func (s *Service) recordRun(ctx context.Context, sessionID string, mode domain.PipelineMode, started time.Time, runErr error) {
	if s.audit == nil {
		return
	}
	run := &domain.PipelineRun{
		RunID:     "run_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Mode:      mode,
		Status:    "succeeded",
		StartedAt: started,
		EndedAt:   time.Now(),
	}
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	}
	if err := s.audit.RecordPipelineRun(ctx, run); err != nil {
		log.Printf("ERROR: failed to record pipeline run audit: %v", err)
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
