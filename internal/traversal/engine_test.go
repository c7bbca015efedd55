package traversal

import (
	"fmt"
	"testing"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newDefinition(questions ...survey.Question) *survey.Definition {
	return (&survey.Definition{ID: uuid.New(), Title: "test", Questions: questions}).Prepare()
}

func choice(id string, options ...survey.Option) survey.Question {
	return survey.Question{ID: id, Text: "question " + id, Type: survey.QuestionTypeSingleChoice, Options: options}
}

func text(id string) survey.Question {
	return survey.Question{ID: id, Text: "question " + id, Type: survey.QuestionTypeText}
}

func mustEngine(t *testing.T, definition *survey.Definition) *Engine {
	t.Helper()
	engine, err := NewEngine(definition)
	require.NoError(t, err)
	return engine
}

// branchingSurvey is Q1(optA->Q3, optB->none), Q2, Q3.
func branchingSurvey() *survey.Definition {
	return newDefinition(
		choice("Q1", survey.Option{ID: "optA", Text: "A", NextQuestionID: "Q3"}, survey.Option{ID: "optB", Text: "B"}),
		text("Q2"),
		text("Q3"),
	)
}

func TestNewEngine_NoQuestions(t *testing.T) {
	_, err := NewEngine(newDefinition())
	require.ErrorIs(t, err, internal.ErrSurveyHasNoQuestions)

	_, err = NewEngine(nil)
	require.ErrorIs(t, err, internal.ErrSurveyHasNoQuestions)
}

func TestEngine_Start(t *testing.T) {
	engine := mustEngine(t, branchingSurvey())
	now := time.Now()

	session := engine.Start(survey.RespondentClassGeneral, now)

	require.Equal(t, "Q1", session.CurrentQuestionID)
	require.Empty(t, session.Answers)
	require.Empty(t, session.History)
	require.False(t, session.Completed)
	require.Equal(t, survey.RespondentClassGeneral, session.RespondentClass)
	require.Equal(t, engine.Definition().ID, session.SurveyID)
}

func TestEngine_BranchingScenario(t *testing.T) {
	testCases := []struct {
		name         string
		option       string
		expectedNext string
		expectedPath []string
	}{
		{name: "optB falls through to Q2", option: "optB", expectedNext: "Q2", expectedPath: []string{"Q1", "Q2"}},
		{name: "optA jumps to Q3", option: "optA", expectedNext: "Q3", expectedPath: []string{"Q1", "Q3"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := mustEngine(t, branchingSurvey())
			session := engine.Start(survey.RespondentClassEmployee, time.Now())

			step, err := engine.AnswerOption(session, tc.option)
			require.NoError(t, err)
			require.False(t, step.Completed)
			require.Equal(t, tc.expectedNext, step.Next.ID)
			require.Equal(t, tc.expectedNext, session.CurrentQuestionID)

			// Q3 is conditional, so neither Q2 nor Q3 falls through to it.
			step, err = engine.SubmitAnswer(session, "some text", "")
			require.NoError(t, err)
			require.True(t, step.Completed)
			require.Equal(t, tc.expectedPath, session.History)
			require.Equal(t, tc.expectedNext, session.CurrentQuestionID, "completion keeps the current question id")
		})
	}
}

func TestEngine_NoReEntry(t *testing.T) {
	definition := newDefinition(
		choice("Q1", survey.Option{ID: "a", NextQuestionID: "Q4"}, survey.Option{ID: "b"}),
		text("Q2"),
		choice("Q3", survey.Option{ID: "c", NextQuestionID: "Q6"}, survey.Option{ID: "d"}),
		text("Q4"),
		text("Q5"),
		text("Q6"),
		text("Q7"),
	)
	conditional := definition.ConditionalSet()

	for _, first := range []string{"a", "b"} {
		for _, third := range []string{"c", "d"} {
			t.Run(fmt.Sprintf("%s-%s", first, third), func(t *testing.T) {
				engine := mustEngine(t, definition)
				session := engine.Start(survey.RespondentClassGeneral, time.Now())

				for steps := 0; steps < len(definition.Questions)+1; steps++ {
					current, err := engine.Current(session)
					require.NoError(t, err)

					var step Step
					explicit := false
					switch current.ID {
					case "Q1":
						opt, _ := current.Option(first)
						explicit = opt.NextQuestionID != ""
						step, err = engine.AnswerOption(session, first)
					case "Q3":
						opt, _ := current.Option(third)
						explicit = opt.NextQuestionID != ""
						step, err = engine.AnswerOption(session, third)
					default:
						step, err = engine.SubmitAnswer(session, "x", "")
					}
					require.NoError(t, err)

					if step.Completed {
						return
					}
					if !explicit {
						require.False(t, conditional.Contains(step.Next.ID), "fell through into conditional question %s", step.Next.ID)
					}
				}
				t.Fatal("traversal did not complete")
			})
		}
	}
}

func TestEngine_JumpPriority(t *testing.T) {
	definition := newDefinition(
		text("Q1"),
		text("Q2"),
		choice("Q3", survey.Option{ID: "back", NextQuestionID: "Q1"}, survey.Option{ID: "ahead", NextQuestionID: "Q5"}),
		text("Q4"),
		text("Q5"),
	)

	testCases := []struct {
		name         string
		option       string
		expectedNext string
	}{
		{name: "backward jump", option: "back", expectedNext: "Q1"},
		{name: "forward jump past sequence", option: "ahead", expectedNext: "Q5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := mustEngine(t, definition)
			session := engine.Start(survey.RespondentClassGeneral, time.Now())
			session.CurrentQuestionID = "Q3"

			step, err := engine.AnswerOption(session, tc.option)
			require.NoError(t, err)
			require.Equal(t, tc.expectedNext, step.Next.ID)
		})
	}
}

func TestEngine_JumpResumesFromTarget(t *testing.T) {
	definition := newDefinition(
		choice("Q1", survey.Option{ID: "a", NextQuestionID: "Q3"}),
		text("Q2"),
		text("Q3"),
		text("Q4"),
	)
	engine := mustEngine(t, definition)
	session := engine.Start(survey.RespondentClassGeneral, time.Now())

	_, err := engine.AnswerOption(session, "a")
	require.NoError(t, err)

	step, err := engine.SubmitAnswer(session, "x", "")
	require.NoError(t, err)
	require.Equal(t, "Q4", step.Next.ID)
	require.NotContains(t, session.Answers, "Q2")
}

func TestEngine_InvalidJumpFallsThrough(t *testing.T) {
	testCases := []struct {
		name     string
		explicit string
	}{
		{name: "unknown id", explicit: "Q99"},
		{name: "empty", explicit: ""},
		{name: "null literal", explicit: "null"},
		{name: "undefined literal", explicit: "undefined"},
		{name: "whitespace", explicit: "   "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := mustEngine(t, newDefinition(text("Q1"), text("Q2")))
			session := engine.Start(survey.RespondentClassGeneral, time.Now())

			step, err := engine.SubmitAnswer(session, "x", tc.explicit)
			require.NoError(t, err)
			require.Equal(t, "Q2", step.Next.ID)
		})
	}
}

func TestEngine_LinearCompletion(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10} {
		t.Run(fmt.Sprintf("%d questions", n), func(t *testing.T) {
			questions := make([]survey.Question, 0, n)
			for i := 1; i <= n; i++ {
				questions = append(questions, text(fmt.Sprintf("Q%d", i)))
			}
			engine := mustEngine(t, newDefinition(questions...))
			session := engine.Start(survey.RespondentClassGeneral, time.Now())

			for i := 1; i <= n; i++ {
				step, err := engine.SubmitAnswer(session, fmt.Sprintf("answer %d", i), "")
				require.NoError(t, err)
				require.Equal(t, i == n, step.Completed)
			}

			require.True(t, session.Completed)
			require.Len(t, session.History, n)
			require.Len(t, session.Answers, n)
			require.Equal(t, float64(100), engine.Progress(session))

			_, err := engine.SubmitAnswer(session, "late", "")
			require.ErrorIs(t, err, internal.ErrSessionCompleted)
		})
	}
}

func TestEngine_GoBack(t *testing.T) {
	engine := mustEngine(t, newDefinition(text("Q1"), text("Q2"), text("Q3")))
	session := engine.Start(survey.RespondentClassGeneral, time.Now())

	require.False(t, engine.GoBack(session), "empty history exits to start")
	require.Equal(t, "Q1", session.CurrentQuestionID)

	_, err := engine.SubmitAnswer(session, "first", "")
	require.NoError(t, err)
	_, err = engine.SubmitAnswer(session, "second", "")
	require.NoError(t, err)
	require.Equal(t, "Q3", session.CurrentQuestionID)

	require.True(t, engine.GoBack(session))
	require.Equal(t, "Q2", session.CurrentQuestionID)
	require.Equal(t, []string{"Q1"}, session.History)
	require.Equal(t, "second", session.Answers["Q2"].Answer, "going back keeps the answer")

	_, err = engine.SubmitAnswer(session, "second again", "")
	require.NoError(t, err)
	require.Len(t, session.Answers, 2, "re-answering replaces rather than duplicates")
	require.Equal(t, "second again", session.Answers["Q2"].Answer)
}

func TestEngine_Progress(t *testing.T) {
	engine := mustEngine(t, newDefinition(text("Q1"), text("Q2"), text("Q3"), text("Q4")))
	session := engine.Start(survey.RespondentClassGeneral, time.Now())

	require.Equal(t, float64(0), engine.Progress(session))

	_, err := engine.SubmitAnswer(session, "x", "")
	require.NoError(t, err)
	require.Equal(t, float64(25), engine.Progress(session))

	// Backward jumps can make the history longer than the survey.
	session.History = []string{"Q1", "Q2", "Q3", "Q4", "Q1", "Q2"}
	require.Equal(t, float64(100), engine.Progress(session))
}

func TestEngine_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		run         func(engine *Engine, session *Session) error
		expectedErr error
	}{
		{
			name: "missing current question",
			run: func(engine *Engine, session *Session) error {
				session.CurrentQuestionID = "gone"
				_, err := engine.SubmitAnswer(session, "x", "")
				return err
			},
			expectedErr: internal.ErrCannotContinue,
		},
		{
			name: "required question without answer",
			run: func(engine *Engine, session *Session) error {
				_, err := engine.SubmitAnswer(session, "  ", "")
				return err
			},
			expectedErr: internal.ErrAnswerRequired,
		},
		{
			name: "required question with nil answer",
			run: func(engine *Engine, session *Session) error {
				_, err := engine.SubmitAnswer(session, nil, "")
				return err
			},
			expectedErr: internal.ErrAnswerRequired,
		},
		{
			name: "unknown option",
			run: func(engine *Engine, session *Session) error {
				_, err := engine.AnswerOption(session, "nope")
				return err
			},
			expectedErr: internal.ErrUnknownOption,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q1 := choice("Q1", survey.Option{ID: "a"})
			q1.IsRequired = true
			engine := mustEngine(t, newDefinition(q1, text("Q2")))
			session := engine.Start(survey.RespondentClassGeneral, time.Now())
			before := session.clone()

			err := tc.run(engine, session)
			require.ErrorIs(t, err, tc.expectedErr)
			require.Empty(t, session.Answers, "failed answers leave no trace")
			require.Empty(t, session.History)
			require.Equal(t, before.Completed, session.Completed)
		})
	}
}

func TestEngine_OptionalQuestionMayBeSkipped(t *testing.T) {
	engine := mustEngine(t, newDefinition(text("Q1"), text("Q2")))
	session := engine.Start(survey.RespondentClassGeneral, time.Now())

	step, err := engine.SubmitAnswer(session, "", "")
	require.NoError(t, err)
	require.Equal(t, "Q2", step.Next.ID)
	require.Equal(t, "question Q1", session.Answers["Q1"].QuestionText)
}
