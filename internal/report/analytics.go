package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
)

type OptionCount struct {
	Label      string `json:"label"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type QuestionSummary struct {
	QuestionID  string              `json:"questionId"`
	Text        string              `json:"text"`
	Type        survey.QuestionType `json:"type"`
	Total       int                 `json:"total"`
	Counts      []OptionCount       `json:"counts,omitempty"`
	TextAnswers []string            `json:"textAnswers,omitempty"`
	Average     *float64            `json:"average,omitempty"`
}

type Analytics struct {
	SurveyID       uuid.UUID         `json:"surveyId"`
	Title          string            `json:"title"`
	TotalResponses int               `json:"totalResponses"`
	ByUserType     map[string]int    `json:"byUserType"`
	Questions      []QuestionSummary `json:"questions"`
}

// Analyze aggregates responses per question of the current survey version.
// Answers to questions that were removed from the survey are not reported.
func Analyze(definition *survey.Definition, records []response.Record) Analytics {
	result := Analytics{
		SurveyID:       definition.ID,
		Title:          definition.Title,
		TotalResponses: len(records),
		ByUserType: map[string]int{
			survey.RespondentClassToUppercase(survey.RespondentClassEmployee): 0,
			survey.RespondentClassToUppercase(survey.RespondentClassGeneral):  0,
		},
		Questions: make([]QuestionSummary, 0, len(definition.Questions)),
	}

	for _, r := range records {
		result.ByUserType[survey.RespondentClassToUppercase(r.UserType)]++
	}

	for _, q := range definition.Questions {
		var answers []any
		for _, r := range records {
			if v, ok := r.Answer(q.ID); ok {
				answers = append(answers, v.Answer)
			}
		}
		result.Questions = append(result.Questions, summarize(q, answers))
	}

	return result
}

func summarize(q survey.Question, answers []any) QuestionSummary {
	summary := QuestionSummary{
		QuestionID: q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Total:      len(answers),
	}

	switch q.Type {
	case survey.QuestionTypeSingleChoice:
		summary.Counts = countLabels(q, answers)
	case survey.QuestionTypeRating:
		summary.Counts = countLabels(q, answers)
		summary.Average = average(answers)
	default:
		for _, a := range answers {
			if text := AnswerText(q, a); text != "" {
				summary.TextAnswers = append(summary.TextAnswers, text)
			}
		}
	}

	return summary
}

// countLabels counts answers by display label, most frequent first. Options
// nobody picked are listed after the rest with a count of zero.
func countLabels(q survey.Question, answers []any) []OptionCount {
	counts := make(map[string]int)
	for _, a := range answers {
		counts[AnswerText(q, a)]++
	}

	result := make([]OptionCount, 0, len(counts)+len(q.Options))
	for label, count := range counts {
		result = append(result, OptionCount{Label: label, Count: count, Percentage: percentage(count, len(answers))})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})

	for _, opt := range q.Options {
		if _, seen := counts[opt.Text]; !seen {
			result = append(result, OptionCount{Label: opt.Text})
		}
	}

	return result
}

func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func average(answers []any) *float64 {
	var sum float64
	n := 0
	for _, a := range answers {
		if v, ok := number(a); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(sum/float64(n)*100) / 100
	return &avg
}

func number(a any) (float64, bool) {
	switch v := a.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// AnswerText renders an answer for display. Choice answers show the option
// text when the option still exists.
func AnswerText(q survey.Question, a any) string {
	var raw string
	switch v := a.(type) {
	case nil:
		return ""
	case string:
		raw = v
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw = fmt.Sprint(v)
	}

	if opt, ok := q.Option(raw); ok {
		return opt.Text
	}
	return raw
}
