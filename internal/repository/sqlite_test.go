package repository

import (
	"context"
	"testing"
	"time"

	"github.com/graphcare/backend/internal/domain"
)

func newTestLog(t *testing.T) *AuditLog {
	t.Helper()
	log, err := NewAuditLog(":memory:")
	if err != nil {
		t.Fatalf("failed to create audit log: %v", err)
	}
	return log
}

func TestAuditSessionAndNotes(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	defer log.Close()

	sess := &domain.Session{
		ID:           "s1",
		PatientID:    "P1",
		Probability:  0.6,
		ArtifactPath: "uploads/s1.json",
		CreatedAt:    time.Now(),
	}
	if err := log.RecordSession(ctx, sess); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	got, err := log.GetSessionRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionRecord failed: %v", err)
	}
	if got == nil || got.PatientID != "P1" || got.Probability != 0.6 {
		t.Fatalf("unexpected session record: %+v", got)
	}

	if err := log.RecordNote(ctx, "n1", "s1", 1, "血压下降", 0.64); err != nil {
		t.Fatalf("RecordNote failed: %v", err)
	}
	if err := log.RecordNote(ctx, "n2", "s1", 2, "好转", 0.61); err != nil {
		t.Fatalf("RecordNote failed: %v", err)
	}

	notes, err := log.ListNotes(ctx, "s1")
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(notes) != 2 || notes[0].Seq != 1 || notes[1].Text != "好转" {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestAuditSessionRecordMissing(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	defer log.Close()

	got, err := log.GetSessionRecord(ctx, "absent")
	if err != nil {
		t.Fatalf("GetSessionRecord failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func TestAuditPipelineRuns(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	defer log.Close()

	started := time.Now()
	runs := []*domain.PipelineRun{
		{
			RunID:     "run_1",
			SessionID: "s1",
			Mode:      domain.PipelineModePlain,
			Status:    "succeeded",
			StartedAt: started,
			EndedAt:   started.Add(time.Second),
		},
		{
			RunID:     "run_2",
			SessionID: "s1",
			Mode:      domain.PipelineModeFeedback,
			Status:    "failed",
			Error:     "model stage inference failed: exit status 1",
			StartedAt: started.Add(time.Minute),
			EndedAt:   started.Add(time.Minute + time.Second),
		},
	}
	for _, r := range runs {
		if err := log.RecordPipelineRun(ctx, r); err != nil {
			t.Fatalf("RecordPipelineRun failed: %v", err)
		}
	}

	got, err := log.ListPipelineRuns(ctx, "s1")
	if err != nil {
		t.Fatalf("ListPipelineRuns failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].Mode != domain.PipelineModePlain || got[0].Error != "" {
		t.Fatalf("unexpected first run: %+v", got[0])
	}
	if got[1].Status != "failed" || got[1].Error == "" {
		t.Fatalf("unexpected second run: %+v", got[1])
	}

	recent, err := log.RecentPipelineRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentPipelineRuns failed: %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != "run_2" {
		t.Fatalf("expected newest run first, got %+v", recent)
	}
}
