// Package pipeline drives the external predictive-model process pipeline and
// parses its output contract into a ranked name list.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/graphcare/backend/internal/domain"
	"github.com/graphcare/backend/internal/runner"
)

// maxNames is the number of entries taken from the name-resolved artifact.
const maxNames = 5

// Stage names used in execution errors.
const (
	stageInference = "inference"
	stageConvert   = "convert"
	stageKeyword   = "keyword_extract"
	stageCluster   = "cluster_map"
)

// Config holds the interpreter, script and artifact paths for the pipeline.
type Config struct {
	Python        string
	ModelScript   string
	ConvertScript string
	KeywordScript string
	ClusterScript string

	WeightsPath     string
	ResultPath      string // raw inference artifact
	NamedResultPath string // name-resolved inference artifact

	// StageTimeout bounds each subprocess stage. Zero disables the deadline.
	StageTimeout time.Duration
}

// FeedbackWriter persists the single-slot feedback text the preprocessing
// stages consume.
type FeedbackWriter interface {
	SaveFeedbackText(text string) (string, error)
}

// Pipeline invokes the external model stages strictly sequentially. A single
// process-wide mutex serializes all runs: the feedback slot and the result
// artifacts are shared files, so concurrent runs from different sessions
// would race on them.
type Pipeline struct {
	cfg      Config
	run      runner.Runner
	feedback FeedbackWriter

	mu sync.Mutex
}

// New creates a Pipeline using the given process runner.
func New(cfg Config, r runner.Runner, feedback FeedbackWriter) *Pipeline {
	return &Pipeline{cfg: cfg, run: r, feedback: feedback}
}

// Recommend runs the plain (intake) pipeline for the given patient and
// returns the parsed top-k names.
func (p *Pipeline) Recommend(ctx context.Context, patientID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.runInference(ctx, patientID, false); err != nil {
		return nil, err
	}
	if err := p.convertWithFallback(ctx); err != nil {
		return nil, err
	}
	return p.parseNamedResult()
}

// RecommendWithFeedback runs the feedback (augmentation) pipeline. The
// feedback text is written to the shared slot under the pipeline lock so a
// concurrent augmentation cannot overwrite it before the model reads it.
func (p *Pipeline) RecommendWithFeedback(ctx context.Context, patientID, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.feedback.SaveFeedbackText(text); err != nil {
		return nil, err
	}
	if err := p.stage(ctx, stageKeyword, p.cfg.KeywordScript); err != nil {
		return nil, err
	}
	if err := p.stage(ctx, stageCluster, p.cfg.ClusterScript); err != nil {
		return nil, err
	}
	if err := p.runInference(ctx, patientID, true); err != nil {
		return nil, err
	}
	if err := p.convertWithFallback(ctx); err != nil {
		return nil, err
	}
	return p.parseNamedResult()
}

func (p *Pipeline) runInference(ctx context.Context, patientID string, withFeedback bool) error {
	args := []string{
		"-u", p.cfg.ModelScript,
		"--dataset", "mimic3",
		"--task", "drugrec",
		"--infer",
		"--weights_path", p.cfg.WeightsPath,
		"--out", p.cfg.ResultPath,
		"--patient_id", patientID,
	}
	if withFeedback {
		args = append(args, "--with_feedback")
	}

	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	if err := p.run.Run(ctx, p.cfg.Python, args...); err != nil {
		return &domain.ModelExecutionError{Stage: stageInference, Err: err}
	}
	return nil
}

// convertWithFallback is a two-attempt policy: explicit --input/--output
// first, then the conversion tool's own default paths. Deployed versions of
// the tool do not all accept explicit path arguments. This is the only retry
// in the system.
func (p *Pipeline) convertWithFallback(ctx context.Context) error {
	attempt := func() error {
		stageCtx, cancel := p.stageContext(ctx)
		defer cancel()
		return p.run.Run(stageCtx, p.cfg.Python, p.cfg.ConvertScript,
			"--input", p.cfg.ResultPath,
			"--output", p.cfg.NamedResultPath,
		)
	}
	if err := attempt(); err == nil {
		return nil
	}

	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()
	if err := p.run.Run(stageCtx, p.cfg.Python, p.cfg.ConvertScript); err != nil {
		return &domain.ModelExecutionError{Stage: stageConvert, Err: err}
	}
	return nil
}

// stage runs a no-argument preprocessing script. First failure aborts the
// pipeline.
func (p *Pipeline) stage(ctx context.Context, name, script string) error {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	if err := p.run.Run(ctx, p.cfg.Python, script); err != nil {
		return &domain.ModelExecutionError{Stage: name, Err: err}
	}
	return nil
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.StageTimeout)
}

// parseNamedResult reads the name-resolved artifact and extracts the top
// names. A document carrying neither recognized field degrades to an empty
// list rather than an error.
func (p *Pipeline) parseNamedResult() ([]string, error) {
	raw, err := os.ReadFile(p.cfg.NamedResultPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ArtifactMissingError{Path: p.cfg.NamedResultPath}
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var doc struct {
		TopKNames       []any `json:"topk_names"`
		Recommendations []any `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", p.cfg.NamedResultPath, err)
	}

	var names []string
	switch {
	case doc.TopKNames != nil:
		for _, v := range doc.TopKNames {
			names = append(names, coerceString(v))
		}
	case doc.Recommendations != nil:
		for _, v := range doc.Recommendations {
			rec, ok := v.(map[string]any)
			if !ok {
				continue
			}
			name := rec["drug_name"]
			if name == nil || name == "" {
				name = rec["name"]
			}
			if name != nil && name != "" {
				names = append(names, coerceString(name))
			}
		}
	}

	if len(names) > maxNames {
		names = names[:maxNames]
	}
	return names, nil
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
