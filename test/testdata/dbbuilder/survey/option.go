package surveybuilder

import (
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
)

type Option func(*FactoryParams)

type FactoryParams struct {
	ID             uuid.UUID
	Title          string
	Description    string
	TargetAudience survey.TargetAudience
	Questions      []survey.Question
	Active         bool
}

func WithID(id uuid.UUID) Option {
	return func(p *FactoryParams) { p.ID = id }
}

func WithTitle(title string) Option {
	return func(p *FactoryParams) { p.Title = title }
}

func WithDescription(description string) Option {
	return func(p *FactoryParams) { p.Description = description }
}

func WithAudience(audience survey.TargetAudience) Option {
	return func(p *FactoryParams) { p.TargetAudience = audience }
}

func WithQuestions(questions ...survey.Question) Option {
	return func(p *FactoryParams) { p.Questions = questions }
}

// Active stores the survey as active for its audience without resolving
// conflicts with other surveys.
func Active() Option {
	return func(p *FactoryParams) { p.Active = true }
}
