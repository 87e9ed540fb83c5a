package domain

import "fmt"

// ValidationError reports malformed or missing required input. Reported to
// the caller as a 400, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a reference to an unknown resource, typically a
// session id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ModelExecutionError reports a non-zero exit from an external pipeline
// stage. Only the conversion stage is ever retried, and only once.
type ModelExecutionError struct {
	Stage string
	Err   error
}

func (e *ModelExecutionError) Error() string {
	return fmt.Sprintf("model stage %s failed: %v", e.Stage, e.Err)
}

func (e *ModelExecutionError) Unwrap() error { return e.Err }

// ArtifactMissingError reports an expected pipeline output artifact that is
// absent after an ostensibly successful run.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("model output artifact missing: %s", e.Path)
}

// StorageError reports a failure writing a patient or feedback artifact to
// persistent storage.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
