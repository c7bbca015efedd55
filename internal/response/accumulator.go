package response

import (
	"sort"
	"time"

	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
)

// Accumulate turns the answers of a finished traversal into a Record.
func Accumulate(definition *survey.Definition, class survey.RespondentClass, answers map[string]Value, now time.Time) Record {
	return Record{
		ID:          uuid.New(),
		SurveyID:    definition.ID,
		UserType:    class,
		Answers:     OrderAnswers(definition, answers),
		SubmittedAt: now.UTC(),
	}
}

// OrderAnswers lists answers in the survey's question order, not the order
// they were given in. Answers for questions that are no longer part of the
// survey are appended sorted by question id.
func OrderAnswers(definition *survey.Definition, answers map[string]Value) []Value {
	ordered := make([]Value, 0, len(answers))
	seen := make(map[string]struct{}, len(answers))

	for _, q := range definition.Questions {
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		ordered = append(ordered, v)
	}

	var orphaned []string
	for id := range answers {
		if _, ok := seen[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	sort.Strings(orphaned)
	for _, id := range orphaned {
		ordered = append(ordered, answers[id])
	}

	return ordered
}
