package seed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/retry"
)

// --- Mocks ---

type mockGenerator struct {
	mu        sync.Mutex
	responses []string // consumed in order; last one repeats
	errs      []error  // parallel to responses, nil entries mean success
	calls     int
}

func (m *mockGenerator) Generate(_ context.Context, _ domain.GenerationRequest) (domain.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	if m.errs != nil && m.errs[i] != nil {
		return domain.GenerationResult{}, m.errs[i]
	}
	return domain.GenerationResult{Content: m.responses[i]}, nil
}

func questionsJSON(t *testing.T, qs ...string) string {
	t.Helper()
	data, err := json.Marshal(map[string][]string{"questions": qs})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newTestService(gen Generator) *Service {
	exec := retry.New(retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, zap.NewNop())
	return New(gen, exec, 1, zap.NewNop())
}

func TestRunGeneratesPerAreaAndLevel(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		questionsJSON(t, "q1", "q2", "q3", "q4", "q5"),
	}}
	svc := newTestService(gen)

	got, err := svc.Run(context.Background(), []string{"mathematics"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := len(domain.EducationLevels) * domain.QuestionsPerArea
	if len(got) != want {
		t.Fatalf("len(questions) = %d, want %d", len(got), want)
	}
	if got[0].ID != domain.QuestionID(domain.EducationLevels[0], "mathematics", 0) {
		t.Errorf("ID = %q, want deterministic level/area/index id", got[0].ID)
	}
	if got[0].Area != "mathematics" || got[0].Level != domain.EducationLevels[0] {
		t.Errorf("question metadata = %q/%q", got[0].Area, got[0].Level)
	}
}

func TestRunSanitizesAreaNames(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		questionsJSON(t, "q1", "q2", "q3", "q4", "q5"),
	}}
	svc := newTestService(gen)

	got, err := svc.Run(context.Background(), []string{"World_History"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got[0].Area != "world history" {
		t.Errorf("Area = %q, want sanitized name", got[0].Area)
	}
}

func TestRunSkipsInvalidArea(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		questionsJSON(t, "q1", "q2", "q3", "q4", "q5"),
	}}
	svc := newTestService(gen)

	got, err := svc.Run(context.Background(), []string{"bad;area", "physics"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, q := range got {
		if q.Area != "physics" {
			t.Errorf("unexpected area %q in output", q.Area)
		}
	}
}

func TestRunRetriesShortList(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		questionsJSON(t, "only", "two"),
		questionsJSON(t, "q1", "q2", "q3", "q4", "q5"),
	}}
	exec := retry.New(retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, zap.NewNop())
	svc := New(gen, exec, 1, zap.NewNop())
	svc.levels = []string{"college"}

	got, err := svc.Run(context.Background(), []string{"physics"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != domain.QuestionsPerArea {
		t.Errorf("len(questions) = %d, want %d", len(got), domain.QuestionsPerArea)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want a retry after the short list", gen.calls)
	}
}

func TestRunPartialFailureStillSucceeds(t *testing.T) {
	// Every generation fails permanently except the last level's.
	refused := domain.ErrGenerationRefused
	gen := &mockGenerator{
		responses: []string{"", "", questionsJSON(t, "q1", "q2", "q3", "q4", "q5")},
		errs:      []error{refused, refused, nil},
	}
	svc := newTestService(gen)

	got, err := svc.Run(context.Background(), []string{"biology"})
	if err != nil {
		t.Fatalf("Run() error = %v, partial success must not fail the stage", err)
	}
	if len(got) != domain.QuestionsPerArea {
		t.Errorf("len(questions) = %d, want the surviving pair only", len(got))
	}
}

func TestRunAllFailedIsAnError(t *testing.T) {
	gen := &mockGenerator{
		responses: []string{""},
		errs:      []error{domain.ErrGenerationRefused},
	}
	svc := newTestService(gen)

	if _, err := svc.Run(context.Background(), []string{"biology"}); err == nil {
		t.Fatal("Run() error = nil, want failure when nothing was generated")
	}
}

func TestRunTruncatesExtraQuestions(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		questionsJSON(t, "q1", "q2", "q3", "q4", "q5", "q6", "q7"),
	}}
	exec := retry.New(retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond}, zap.NewNop())
	svc := New(gen, exec, 1, zap.NewNop())
	svc.levels = []string{"college"}

	got, err := svc.Run(context.Background(), []string{"physics"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != domain.QuestionsPerArea {
		t.Errorf("len(questions) = %d, want exactly %d", len(got), domain.QuestionsPerArea)
	}
}

func TestRunPermanentErrorNotRetried(t *testing.T) {
	gen := &mockGenerator{
		responses: []string{""},
		errs:      []error{domain.ErrGenerationRefused},
	}
	svc := newTestService(gen)
	svc.levels = []string{"college"}

	_, err := svc.Run(context.Background(), []string{"physics"})
	if err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, refusals must not be retried", gen.calls)
	}
	if errors.Is(err, domain.ErrGenerationRefused) {
		// The stage reports aggregate failure, not the per-pair cause.
		t.Errorf("stage error should not expose the per-pair cause, got %v", err)
	}
}
