package eval

import (
	"context"
	"encoding/json"
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
	responses []string
	errs      []error
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

func scoresJSON(t *testing.T, value int) string {
	t.Helper()
	scores := map[string]int{}
	for _, dim := range domain.EvaluationDimensions {
		scores[dim] = value
	}
	data, err := json.Marshal(scores)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newTestService(gen Generator) *Service {
	exec := retry.New(retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, zap.NewNop())
	return New(gen, exec, 1, zap.NewNop())
}

func quizSet(id string) domain.QuizSet {
	return domain.QuizSet{
		QuestionID: id,
		Question:   "How do plants make food?",
		Area:       "biology",
		Level:      "college",
		Summary:    "Plants convert light into chemical energy.",
		Items: []domain.QuizItem{
			{Question: "What is photosynthesis?", Options: []string{"a", "b", "c", "d"}},
		},
	}
}

func seedQuestion(id string) domain.SeedQuestion {
	return domain.SeedQuestion{ID: id, Area: "biology", Level: "college", Text: "How do plants make food?"}
}

func TestRunScoresEverySet(t *testing.T) {
	gen := &mockGenerator{responses: []string{scoresJSON(t, 4)}}
	svc := newTestService(gen)

	questions := []domain.SeedQuestion{seedQuestion("college/biology/0")}
	got, err := svc.Run(context.Background(), questions, []domain.QuizSet{quizSet("college/biology/0")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(evals) = %d, want 1", len(got))
	}
	ev := got[0]
	if ev.Error != "" {
		t.Errorf("Error = %q, want scored", ev.Error)
	}
	if len(ev.Scores) != len(domain.EvaluationDimensions) {
		t.Fatalf("len(Scores) = %d, want %d", len(ev.Scores), len(domain.EvaluationDimensions))
	}
	for _, dim := range domain.EvaluationDimensions {
		if ev.Scores[dim] != 4 {
			t.Errorf("Scores[%q] = %d, want 4", dim, ev.Scores[dim])
		}
	}
}

func TestRunRejectsOutOfRangeScores(t *testing.T) {
	gen := &mockGenerator{responses: []string{scoresJSON(t, 9), scoresJSON(t, 3)}}
	svc := newTestService(gen)

	got, err := svc.Run(context.Background(), nil, []domain.QuizSet{quizSet("x")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want a retry after out-of-range scores", gen.calls)
	}
	if got[0].Scores[domain.EvaluationDimensions[0]] != 3 {
		t.Errorf("Scores = %v, want the retried values", got[0].Scores)
	}
}

func TestRunRecordsFailureReason(t *testing.T) {
	gen := &mockGenerator{
		responses: []string{"", scoresJSON(t, 5)},
		errs:      []error{domain.ErrGenerationRefused, nil},
	}
	svc := newTestService(gen)

	sets := []domain.QuizSet{quizSet("college/biology/0"), quizSet("college/biology/1")}
	got, err := svc.Run(context.Background(), nil, sets)
	if err != nil {
		t.Fatalf("Run() error = %v, one scored set should be enough", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(evals) = %d, want every set accounted for", len(got))
	}
	if got[0].Error == "" {
		t.Error("failed set must carry its reason")
	}
	if got[0].Scores != nil {
		t.Errorf("failed set Scores = %v, want none", got[0].Scores)
	}
	if got[1].Error != "" {
		t.Errorf("second set Error = %q, want scored", got[1].Error)
	}
}

func TestRunZeroScoresForEmptySet(t *testing.T) {
	gen := &mockGenerator{responses: []string{scoresJSON(t, 5)}}
	svc := newTestService(gen)

	empty := domain.QuizSet{QuestionID: "college/biology/9"}
	got, err := svc.Run(context.Background(), nil, []domain.QuizSet{quizSet("college/biology/0"), empty})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, ev := range got {
		if ev.QuestionID != "college/biology/9" {
			continue
		}
		for _, dim := range domain.EvaluationDimensions {
			if ev.Scores[dim] != 0 {
				t.Errorf("Scores[%q] = %d, want 0", dim, ev.Scores[dim])
			}
		}
		return
	}
	t.Fatal("no evaluation row for the itemless set")
}

func TestRunZeroScoresForMissingQuestions(t *testing.T) {
	gen := &mockGenerator{responses: []string{scoresJSON(t, 5)}}
	svc := newTestService(gen)

	questions := []domain.SeedQuestion{
		seedQuestion("college/biology/0"),
		seedQuestion("college/biology/1"), // produced no quiz set upstream
	}
	got, err := svc.Run(context.Background(), questions, []domain.QuizSet{quizSet("college/biology/0")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(evals) = %d, want a row per seed question", len(got))
	}
	for _, ev := range got {
		if ev.QuestionID != "college/biology/1" {
			continue
		}
		for _, dim := range domain.EvaluationDimensions {
			if ev.Scores[dim] != 0 {
				t.Errorf("Scores[%q] = %d, want 0", dim, ev.Scores[dim])
			}
		}
		return
	}
	t.Fatal("no evaluation row for the quiz-less question")
}

func TestRunAllFailedIsAnError(t *testing.T) {
	gen := &mockGenerator{
		responses: []string{""},
		errs:      []error{domain.ErrGenerationRefused},
	}
	svc := newTestService(gen)

	if _, err := svc.Run(context.Background(), nil, []domain.QuizSet{quizSet("x")}); err == nil {
		t.Fatal("Run() error = nil, want failure when nothing was scored")
	}
}
