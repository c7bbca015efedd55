package traversal

import (
	"strings"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
)

// Session is the traversal state of one respondent. A session is owned by a
// single respondent and must not be shared between goroutines without the
// store's per-session lock.
type Session struct {
	ID                uuid.UUID
	SurveyID          uuid.UUID
	RespondentClass   survey.RespondentClass
	CurrentQuestionID string
	Answers           map[string]response.Value
	History           []string
	Completed         bool
	StartedAt         time.Time
}

func (s *Session) clone() *Session {
	answers := make(map[string]response.Value, len(s.Answers))
	for id, v := range s.Answers {
		answers[id] = v
	}
	copied := *s
	copied.Answers = answers
	copied.History = append([]string(nil), s.History...)
	return &copied
}

// Step is the outcome of answering a question.
type Step struct {
	Completed bool
	Next      survey.Question
}

// Engine decides which question follows an answer. It holds a prepared
// definition and no per-respondent state, so one Engine serves any number of
// sessions of the same survey.
type Engine struct {
	definition *survey.Definition
}

func NewEngine(definition *survey.Definition) (*Engine, error) {
	if definition == nil || len(definition.Questions) == 0 {
		return nil, internal.ErrSurveyHasNoQuestions
	}
	return &Engine{definition: definition.Prepare()}, nil
}

func (e *Engine) Definition() *survey.Definition {
	return e.definition
}

// Start opens a session positioned on the first question.
func (e *Engine) Start(class survey.RespondentClass, now time.Time) *Session {
	first, _ := e.definition.FirstQuestion()
	return &Session{
		ID:                uuid.New(),
		SurveyID:          e.definition.ID,
		RespondentClass:   class,
		CurrentQuestionID: first.ID,
		Answers:           make(map[string]response.Value),
		History:           make([]string, 0, len(e.definition.Questions)),
		StartedAt:         now,
	}
}

// Current returns the question the session is positioned on.
func (e *Engine) Current(s *Session) (survey.Question, error) {
	q, ok := e.definition.Question(s.CurrentQuestionID)
	if !ok {
		return survey.Question{}, internal.ErrCannotContinue
	}
	return q, nil
}

// SubmitAnswer records the answer for the current question and moves the
// session on. A valid explicit jump target wins, including targets earlier in
// the survey. Without one the next non-conditional question after the current
// one is chosen. When none is left the session is completed and keeps its
// current question id.
//
// Jump cycles are not detected.
func (e *Engine) SubmitAnswer(s *Session, answer any, explicitNextID string) (Step, error) {
	if s.Completed {
		return Step{}, internal.ErrSessionCompleted
	}

	current, err := e.Current(s)
	if err != nil {
		return Step{}, err
	}

	if current.IsRequired && isEmptyAnswer(answer) {
		return Step{}, internal.ErrAnswerRequired
	}

	s.Answers[current.ID] = response.Value{
		QuestionID:   current.ID,
		Answer:       answer,
		QuestionText: current.Text,
	}
	s.History = append(s.History, current.ID)

	if next := survey.NormalizeNextQuestionID(explicitNextID); next != "" {
		if q, ok := e.definition.Question(next); ok {
			s.CurrentQuestionID = q.ID
			return Step{Next: q}, nil
		}
	}

	if q, ok := e.nextSequential(current.ID); ok {
		s.CurrentQuestionID = q.ID
		return Step{Next: q}, nil
	}

	s.Completed = true
	return Step{Completed: true}, nil
}

// AnswerOption answers a choice question by option id, following the option's
// jump target if it has one.
func (e *Engine) AnswerOption(s *Session, optionID string) (Step, error) {
	if s.Completed {
		return Step{}, internal.ErrSessionCompleted
	}

	current, err := e.Current(s)
	if err != nil {
		return Step{}, err
	}

	option, ok := current.Option(optionID)
	if !ok {
		return Step{}, internal.ErrUnknownOption
	}

	return e.SubmitAnswer(s, option.ID, option.NextQuestionID)
}

// GoBack returns to the previously answered question. It reports false when
// there is nothing to go back to and the respondent should leave the survey.
// Answers already given are kept.
func (e *Engine) GoBack(s *Session) bool {
	if len(s.History) == 0 {
		return false
	}

	last := len(s.History) - 1
	s.CurrentQuestionID = s.History[last]
	s.History = s.History[:last]
	s.Completed = false
	return true
}

// Progress approximates completion as answered steps over total questions.
// Branches make it inexact.
func (e *Engine) Progress(s *Session) float64 {
	total := len(e.definition.Questions)
	if total == 0 {
		return 0
	}

	p := float64(len(s.History)) / float64(total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func (e *Engine) nextSequential(fromID string) (survey.Question, bool) {
	idx, ok := e.definition.QuestionIndex(fromID)
	if !ok {
		return survey.Question{}, false
	}

	conditional := e.definition.ConditionalSet()
	for _, q := range e.definition.Questions[idx+1:] {
		if !conditional.Contains(q.ID) {
			return q, true
		}
	}
	return survey.Question{}, false
}

func isEmptyAnswer(answer any) bool {
	switch v := answer.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	}
	return false
}
