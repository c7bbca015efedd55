package response

import (
	"encoding/json"
	"time"

	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Value is one recorded answer. Answer holds the option id for choice
// questions and the raw text or number otherwise. QuestionText is the
// question's text at the time it was answered.
type Value struct {
	QuestionID   string `json:"questionId"`
	Answer       any    `json:"answer"`
	QuestionText string `json:"questionText"`
}

// Record is a submitted survey response. Records are immutable once stored.
type Record struct {
	ID          uuid.UUID              `json:"id"`
	SurveyID    uuid.UUID              `json:"surveyId"`
	UserType    survey.RespondentClass `json:"userType"`
	Answers     []Value                `json:"answers"`
	SubmittedAt time.Time              `json:"submittedAt"`
}

// Answer returns the recorded value for the question.
func (r Record) Answer(questionID string) (Value, bool) {
	for _, v := range r.Answers {
		if v.QuestionID == questionID {
			return v, true
		}
	}
	return Value{}, false
}

// FromRow decodes a stored response. Undecodable answers are logged and
// dropped so a single bad row never breaks a listing.
func FromRow(row Response, logger *zap.Logger) Record {
	answers := make([]Value, 0)
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &answers); err != nil {
			logger.Warn("Malformed answers in stored response, treating as empty",
				zap.String("response_id", row.ID.String()),
				zap.Error(err),
			)
			answers = make([]Value, 0)
		}
	}

	return Record{
		ID:          row.ID,
		SurveyID:    row.SurveyID,
		UserType:    survey.RespondentClass(row.UserType),
		Answers:     answers,
		SubmittedAt: row.SubmittedAt.Time,
	}
}
