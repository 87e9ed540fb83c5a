// Package service implements the session engine composing risk scoring,
// artifact storage, the model pipeline and the session store.
package service

import (
	"context"

	"github.com/graphcare/backend/internal/repository"
	"github.com/graphcare/backend/internal/session"
	"github.com/graphcare/backend/internal/storage"
)

// Recommender drives the external model pipeline. Satisfied by
// *pipeline.Pipeline; tests substitute a stub.
type Recommender interface {
	Recommend(ctx context.Context, patientID string) ([]string, error)
	RecommendWithFeedback(ctx context.Context, patientID, text string) ([]string, error)
}

// Service is the session engine.
type Service struct {
	sessions  *session.Store
	artifacts *storage.Store
	model     Recommender
	audit     *repository.AuditLog // nil disables auditing
}

// New creates a Service. audit may be nil.
func New(sessions *session.Store, artifacts *storage.Store, model Recommender, audit *repository.AuditLog) *Service {
	return &Service{
		sessions:  sessions,
		artifacts: artifacts,
		model:     model,
		audit:     audit,
	}
}
