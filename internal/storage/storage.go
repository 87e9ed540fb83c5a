// Package storage persists the raw intake payloads and the external model's
// feedback-text input.
package storage

import (
	"os"
	"path/filepath"

	"github.com/graphcare/backend/internal/domain"
)

// Store writes patient and feedback artifacts under fixed directories.
type Store struct {
	uploadDir    string
	feedbackPath string
}

// New creates a Store. Directories are created lazily on first write.
func New(uploadDir, feedbackPath string) *Store {
	return &Store{uploadDir: uploadDir, feedbackPath: feedbackPath}
}

// SavePatient persists the raw intake payload one-file-per-session and
// returns the artifact path.
func (s *Store) SavePatient(sessionID string, raw []byte) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", &domain.StorageError{Op: "save patient", Err: err}
	}
	path := filepath.Join(s.uploadDir, sessionID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", &domain.StorageError{Op: "save patient", Err: err}
	}
	return path, nil
}

// SaveFeedbackText overwrites the single shared feedback slot consumed by
// the external model's preprocessing stages. Last write wins across all
// sessions; callers serialize writes with the pipeline lock.
func (s *Store) SaveFeedbackText(text string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.feedbackPath), 0o755); err != nil {
		return "", &domain.StorageError{Op: "save feedback", Err: err}
	}
	if err := os.WriteFile(s.feedbackPath, []byte(text), 0o644); err != nil {
		return "", &domain.StorageError{Op: "save feedback", Err: err}
	}
	return s.feedbackPath, nil
}
