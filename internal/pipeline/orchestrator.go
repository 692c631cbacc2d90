// Package pipeline sequences the generation stages and manages the JSON
// artifacts they exchange on disk.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/metrics"
)

// State tracks a stage through a run.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// Stage is one unit of the pipeline. Inputs name the artifact files that
// must exist and parse before Run is invoked; Output names the artifact the
// stage publishes.
type Stage struct {
	Name   string
	Inputs []string
	Output string
	Run    func(ctx context.Context) (Result, error)
}

// Result reports how many items a stage produced and how many it gave up on.
type Result struct {
	Succeeded int
	Skipped   int
}

// MissingDependencyError reports a stage input that is absent or unreadable.
type MissingDependencyError struct {
	Stage    string
	Artifact string
	Err      error
}

func (e *MissingDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: dependency %s: %v", e.Stage, e.Artifact, e.Err)
	}
	return fmt.Sprintf("stage %s: dependency %s does not exist", e.Stage, e.Artifact)
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }

// Orchestrator runs stages in order, checking artifact preconditions first.
type Orchestrator struct {
	stages []Stage
	states map[string]State
	logger *zap.Logger
}

// New creates an orchestrator over the given stages, in execution order.
func New(stages []Stage, logger *zap.Logger) *Orchestrator {
	states := make(map[string]State, len(stages))
	for _, st := range stages {
		states[st.Name] = StatePending
	}
	return &Orchestrator{stages: stages, states: states, logger: logger}
}

// State reports the recorded state of a stage.
func (o *Orchestrator) State(name string) State {
	return o.states[name]
}

// RunAll executes every stage in order, stopping at the first failure.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	for _, st := range o.stages {
		if err := o.runStage(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// RunStage executes a single stage by name. Earlier stages are not run;
// their artifacts must already exist.
func (o *Orchestrator) RunStage(ctx context.Context, name string) error {
	for _, st := range o.stages {
		if st.Name == name {
			return o.runStage(ctx, st)
		}
	}
	return fmt.Errorf("unknown stage %q", name)
}

func (o *Orchestrator) runStage(ctx context.Context, st Stage) error {
	if err := o.checkInputs(st); err != nil {
		o.states[st.Name] = StateFailed
		return err
	}

	o.states[st.Name] = StateRunning
	o.logger.Info("Stage started", zap.String("stage", st.Name))
	start := time.Now()

	result, err := st.Run(ctx)
	metrics.StageDuration.WithLabelValues(st.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		o.states[st.Name] = StateFailed
		o.logger.Error("Stage failed",
			zap.String("stage", st.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("stage %s: %w", st.Name, err)
	}

	o.states[st.Name] = StateCompleted
	o.logger.Info("Stage completed",
		zap.String("stage", st.Name),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// checkInputs verifies every declared input exists and holds well-formed
// JSON before any work, including remote calls, begins.
func (o *Orchestrator) checkInputs(st Stage) error {
	for _, in := range st.Inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			if os.IsNotExist(err) {
				return &MissingDependencyError{Stage: st.Name, Artifact: filepath.Base(in)}
			}
			return &MissingDependencyError{Stage: st.Name, Artifact: filepath.Base(in), Err: err}
		}
		if !json.Valid(data) {
			return &MissingDependencyError{
				Stage:    st.Name,
				Artifact: filepath.Base(in),
				Err:      fmt.Errorf("not valid JSON"),
			}
		}
	}
	return nil
}
