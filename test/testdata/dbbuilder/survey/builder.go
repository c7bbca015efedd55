package surveybuilder

import (
	"context"
	"encoding/json"
	"testing"

	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/test/testdata"
	"NYCU-SDC/survey-backend/test/testdata/dbbuilder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *survey.Queries {
	return survey.New(b.db)
}

// RandomQuestions builds n required text questions with unique ids.
func RandomQuestions(n int) []survey.Question {
	questions := make([]survey.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, survey.Question{
			ID:         testdata.RandomQuestionID(i),
			Text:       testdata.RandomQuestionText(),
			Type:       survey.QuestionTypeText,
			IsRequired: true,
		})
	}
	return questions
}

func (b Builder) Create(opts ...Option) survey.Survey {
	queries := b.Queries()

	p := &FactoryParams{
		ID:             uuid.New(),
		Title:          testdata.RandomName(),
		Description:    testdata.RandomDescription(),
		TargetAudience: survey.TargetAudienceAll,
		Questions:      RandomQuestions(3),
	}
	for _, opt := range opts {
		opt(p)
	}

	questions, err := json.Marshal(p.Questions)
	require.NoError(b.t, err)

	row, err := queries.Upsert(context.Background(), survey.UpsertParams{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Questions:      questions,
		TargetAudience: p.TargetAudience,
	})
	require.NoError(b.t, err)

	if p.Active {
		row, err = queries.SetStatus(context.Background(), survey.SetStatusParams{
			ID:             row.ID,
			IsActive:       true,
			TargetAudience: p.TargetAudience,
		})
		require.NoError(b.t, err)
	}

	return row
}
