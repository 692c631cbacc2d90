// Package domain holds the pipeline entities and the contracts shared
// between layers.
package domain

import "fmt"

// EducationLevels is the fixed set of levels questions are generated for.
var EducationLevels = []string{"primary school", "high school", "college"}

// EvaluationDimensions is the fixed rubric used by the evaluation stage.
// Scores are integers in [1,5].
var EvaluationDimensions = []string{
	"Educational Value",
	"Diversity",
	"Area Relevance",
	"Difficulty Appropriateness",
	"Comprehensiveness",
}

// QuizOptionCount is the number of options per quiz item.
const QuizOptionCount = 4

// QuizItemsPerSet is the number of quiz items generated per question.
const QuizItemsPerSet = 3

// QuestionsPerArea is the number of seed questions per (area, level) pair.
const QuestionsPerArea = 5

// SeedQuestion is a stage-1 question for a subject area at an education level.
type SeedQuestion struct {
	ID    string `json:"id"`
	Area  string `json:"area"`
	Level string `json:"level"`
	Text  string `json:"text"`
}

// QuestionID builds the deterministic identifier of the n-th question for an
// (area, level) pair. It is the reference other stages use.
func QuestionID(level, area string, n int) string {
	return fmt.Sprintf("%s/%s/%d", level, area, n)
}

// ConceptSet is the stage-2 output for one seed question: the ordered key
// concepts extracted from it.
type ConceptSet struct {
	QuestionID string   `json:"question_id"`
	Question   string   `json:"question"`
	Area       string   `json:"area"`
	Level      string   `json:"level"`
	Concepts   []string `json:"concepts"`
}

// QuizItem is one multiple-choice item. Options[CorrectIndex] is the correct
// answer; CorrectIndex is always 0 -- the correct option is generated in the
// first position. This asymmetry is an inherited contract the evaluation
// stage depends on, not a bug.
type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// QuizSet is the stage-3 output for one question: a grounded summary of the
// retrieved source material and exactly QuizItemsPerSet items derived from it.
type QuizSet struct {
	QuestionID string     `json:"question_id"`
	Question   string     `json:"question"`
	Area       string     `json:"area"`
	Level      string     `json:"level"`
	Concepts   []string   `json:"concepts"`
	Summary    string     `json:"summary"`
	Items      []QuizItem `json:"items"`
}

// Evaluation is the stage-4 score card for one quiz set. Scores maps every
// dimension in EvaluationDimensions to an integer in [1,5]; a quiz set that
// could not be evaluated carries the failure reason instead.
type Evaluation struct {
	QuestionID string         `json:"question_id"`
	Scores     map[string]int `json:"scores"`
	Error      string         `json:"error,omitempty"`
}

// ZeroScores returns an all-zero score card, used when a question produced no
// quiz set to evaluate.
func ZeroScores() map[string]int {
	scores := make(map[string]int, len(EvaluationDimensions))
	for _, dim := range EvaluationDimensions {
		scores[dim] = 0
	}
	return scores
}
