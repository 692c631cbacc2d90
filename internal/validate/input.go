package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var areaPattern = regexp.MustCompile(`^[a-z\s\-&]+$`)

// SanitizeArea canonicalizes an area name from the areas file: underscores
// become spaces, the result is lower-cased and trimmed. Names with characters
// outside letters, spaces, hyphens, and ampersands are rejected.
func SanitizeArea(area string) (string, error) {
	sanitized := strings.TrimSpace(strings.ToLower(strings.ReplaceAll(area, "_", " ")))
	if !areaPattern.MatchString(sanitized) {
		return "", fmt.Errorf("invalid area name: %q", area)
	}
	return sanitized, nil
}

// FilterQuestions drops empty and whitespace-only entries from a generated
// question list.
func FilterQuestions(questions []string) []string {
	valid := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			valid = append(valid, q)
		}
	}
	return valid
}

// maxConceptWords bounds a concept's length; anything longer is a sentence
// that leaked out of the model, not a retrieval key.
const maxConceptWords = 10

// FilterConcepts drops empty concepts and ones too long to be noun phrases.
func FilterConcepts(concepts []string) []string {
	valid := make([]string, 0, len(concepts))
	for _, c := range concepts {
		c = strings.TrimSpace(c)
		if c == "" || len(strings.Fields(c)) > maxConceptWords {
			continue
		}
		valid = append(valid, c)
	}
	return valid
}
