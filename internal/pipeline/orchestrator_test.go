package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type record struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func TestSaveLoadArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	want := []record{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}}

	if err := SaveArtifact(path, want); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	got, err := LoadArtifact[record](path)
	if err != nil {
		t.Fatalf("LoadArtifact() error = %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("LoadArtifact() = %v, want %v", got, want)
	}
}

func TestSaveArtifactCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "out.json")

	if err := SaveArtifact(path, []record{{ID: "a"}}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestSaveArtifactLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	if err := SaveArtifact(filepath.Join(dir, "out.json"), []record{{ID: "a"}}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact[record](filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("LoadArtifact() error = nil, want failure")
	}
}

func TestRunAllExecutesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	var order []string

	orch := New([]Stage{
		{
			Name:   "one",
			Output: first,
			Run: func(context.Context) (Result, error) {
				order = append(order, "one")
				return Result{Succeeded: 1}, SaveArtifact(first, []record{{ID: "a"}})
			},
		},
		{
			Name:   "two",
			Inputs: []string{first},
			Run: func(context.Context) (Result, error) {
				order = append(order, "two")
				return Result{Succeeded: 1}, nil
			},
		},
	}, zap.NewNop())

	if err := orch.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(order) != 2 || order[0] != "one" || order[1] != "two" {
		t.Errorf("execution order = %v", order)
	}
	if orch.State("one") != StateCompleted || orch.State("two") != StateCompleted {
		t.Errorf("states = %v, %v", orch.State("one"), orch.State("two"))
	}
}

func TestRunStageMissingDependency(t *testing.T) {
	dir := t.TempDir()
	ran := false

	orch := New([]Stage{
		{
			Name:   "quiz",
			Inputs: []string{filepath.Join(dir, "concepts.json")},
			Run: func(context.Context) (Result, error) {
				ran = true
				return Result{}, nil
			},
		},
	}, zap.NewNop())

	err := orch.RunStage(context.Background(), "quiz")
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("RunStage() error = %v, want MissingDependencyError", err)
	}
	if missing.Artifact != "concepts.json" {
		t.Errorf("Artifact = %q, want the missing file named", missing.Artifact)
	}
	if ran {
		t.Error("stage body ran despite missing dependency")
	}
	if orch.State("quiz") != StateFailed {
		t.Errorf("state = %v, want FAILED", orch.State("quiz"))
	}
}

func TestRunStageCorruptDependency(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "concepts.json")
	if err := os.WriteFile(input, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	orch := New([]Stage{
		{
			Name:   "quiz",
			Inputs: []string{input},
			Run: func(context.Context) (Result, error) {
				t.Error("stage body ran despite corrupt dependency")
				return Result{}, nil
			},
		},
	}, zap.NewNop())

	err := orch.RunStage(context.Background(), "quiz")
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("RunStage() error = %v, want MissingDependencyError", err)
	}
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	secondRan := false

	orch := New([]Stage{
		{
			Name: "one",
			Run:  func(context.Context) (Result, error) { return Result{}, boom },
		},
		{
			Name: "two",
			Run: func(context.Context) (Result, error) {
				secondRan = true
				return Result{}, nil
			},
		},
	}, zap.NewNop())

	err := orch.RunAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("RunAll() error = %v, want the stage failure", err)
	}
	if secondRan {
		t.Error("later stage ran after a failure")
	}
	if orch.State("one") != StateFailed || orch.State("two") != StatePending {
		t.Errorf("states = %v, %v", orch.State("one"), orch.State("two"))
	}
}

func TestRunStageUnknownName(t *testing.T) {
	orch := New(nil, zap.NewNop())
	if err := orch.RunStage(context.Background(), "nope"); err == nil {
		t.Fatal("RunStage() error = nil, want unknown stage failure")
	}
}
