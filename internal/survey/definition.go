package survey

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeText         QuestionType = "TEXT"
	QuestionTypeRating       QuestionType = "RATING"
	QuestionTypeEmail        QuestionType = "EMAIL"
	QuestionTypePhone        QuestionType = "PHONE"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeText, QuestionTypeRating, QuestionTypeEmail, QuestionTypePhone:
		return true
	}
	return false
}

func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice
}

type Option struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	NextQuestionID string `json:"nextQuestionId,omitempty"`
}

type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	IsRequired bool         `json:"isRequired"`
	Options    []Option     `json:"options,omitempty"`
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Definition is a normalized survey ready to be traversed. Definitions are
// read-only once prepared; an edit produces a new Definition.
type Definition struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Questions      []Question     `json:"questions"`
	IsActive       bool           `json:"isActive"`
	TargetAudience TargetAudience `json:"targetAudience"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	index       map[string]int
	conditional QuestionSet
}

// Prepare builds the question index and the conditional question set. It must
// be called after the question list changes.
func (d *Definition) Prepare() *Definition {
	d.index = make(map[string]int, len(d.Questions))
	for i, q := range d.Questions {
		if _, exists := d.index[q.ID]; !exists {
			d.index[q.ID] = i
		}
	}
	d.conditional = ConditionalSet(d.Questions)
	return d
}

func (d *Definition) ensurePrepared() {
	if d.index == nil {
		d.Prepare()
	}
}

// QuestionIndex returns the position of the question in the survey order.
func (d *Definition) QuestionIndex(id string) (int, bool) {
	d.ensurePrepared()
	i, ok := d.index[id]
	return i, ok
}

func (d *Definition) Question(id string) (Question, bool) {
	i, ok := d.QuestionIndex(id)
	if !ok {
		return Question{}, false
	}
	return d.Questions[i], true
}

// ConditionalSet returns the ids that are only reachable through an option jump.
func (d *Definition) ConditionalSet() QuestionSet {
	d.ensurePrepared()
	return d.conditional
}

func (d *Definition) IsConditional(id string) bool {
	return d.ConditionalSet().Contains(id)
}

func (d *Definition) FirstQuestion() (Question, bool) {
	if len(d.Questions) == 0 {
		return Question{}, false
	}
	return d.Questions[0], true
}

// Accepts reports whether a respondent of the given class may be shown this
// survey.
func (d *Definition) Accepts(class RespondentClass) bool {
	return d.TargetAudience == TargetAudienceAll || string(d.TargetAudience) == string(class)
}
