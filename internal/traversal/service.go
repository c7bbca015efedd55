package traversal

import (
	"context"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/metrics"
	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SurveyProvider interface {
	ActiveForClass(ctx context.Context, class survey.RespondentClass) (*survey.Definition, bool, error)
}

// Submitter stores the answers of a completed traversal.
type Submitter interface {
	Complete(ctx context.Context, definition *survey.Definition, class survey.RespondentClass, answers map[string]response.Value) (response.Record, error)
}

// Snapshot is what a respondent sees after each request.
type Snapshot struct {
	SessionID     uuid.UUID
	SurveyID      uuid.UUID
	SurveyTitle   string
	Question      survey.Question
	IsConditional bool
	Progress      float64
	Answers       []response.Value
	CanGoBack     bool
	Completed     bool
	ExitToStart   bool
	ResponseID    uuid.UUID
}

type Service struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	surveys   SurveyProvider
	submitter Submitter
	store     *Store
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewService(logger *zap.Logger, surveys SurveyProvider, submitter Submitter, store *Store, collector *metrics.Collector) *Service {
	return &Service{
		logger:    logger,
		tracer:    otel.Tracer("traversal/service"),
		surveys:   surveys,
		submitter: submitter,
		store:     store,
		metrics:   collector,
		now:       time.Now,
	}
}

// Start opens a session on the survey currently active for the class. The
// boolean is false when no survey is available.
func (s *Service) Start(ctx context.Context, class survey.RespondentClass) (Snapshot, bool, error) {
	ctx, span := s.tracer.Start(ctx, "Start")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	definition, ok, err := s.surveys.ActiveForClass(ctx, class)
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, false, err
	}
	if !ok {
		return Snapshot{}, false, nil
	}

	engine, err := NewEngine(definition)
	if err != nil {
		logger.Warn("Active survey cannot be traversed", zap.String("survey_id", definition.ID.String()), zap.Error(err))
		span.RecordError(err)
		return Snapshot{}, false, err
	}

	session := engine.Start(class, s.now())
	s.store.Put(session, engine)
	s.metrics.SessionStarted(survey.RespondentClassToUppercase(class))

	span.SetAttributes(
		attribute.String("session_id", session.ID.String()),
		attribute.String("survey_id", definition.ID.String()),
	)
	logger.Info("Survey session started",
		zap.String("session_id", session.ID.String()),
		zap.String("survey_id", definition.ID.String()),
		zap.String("respondent_class", string(class)),
	)

	snapshot, err := s.snapshot(session, engine)
	return snapshot, true, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	_, span := s.tracer.Start(ctx, "Get")
	defer span.End()

	var snapshot Snapshot
	err := s.store.With(id, func(session *Session, engine *Engine) (bool, error) {
		var err error
		snapshot, err = s.snapshot(session, engine)
		return false, err
	})
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Answer applies an answer to the session's current question. For choice
// questions optionID selects the option; when it is empty a string answer is
// taken as the option id and any other non-nil answer is rejected. On completion the answers are submitted and the
// session is discarded. A failed submission leaves the session as it was
// before the answer so the respondent can try again.
func (s *Service) Answer(ctx context.Context, id uuid.UUID, answer any, optionID string) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "Answer")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	var snapshot Snapshot
	err := s.store.With(id, func(session *Session, engine *Engine) (bool, error) {
		current, err := engine.Current(session)
		if err != nil {
			logger.Error("Session is positioned on an unknown question",
				zap.String("session_id", session.ID.String()),
				zap.String("question_id", session.CurrentQuestionID),
			)
			return false, err
		}

		// Choice answers are option ids. A missing answer is left to the
		// required check, anything else must name an option.
		if optionID == "" && current.Type.IsChoice() {
			switch v := answer.(type) {
			case nil:
			case string:
				optionID = v
			default:
				return false, internal.ErrUnknownOption
			}
		}

		before := session.clone()

		var step Step
		if optionID != "" && current.Type.IsChoice() {
			step, err = engine.AnswerOption(session, optionID)
		} else {
			step, err = engine.SubmitAnswer(session, answer, "")
		}
		if err != nil {
			return false, err
		}

		if !step.Completed {
			snapshot, err = s.snapshot(session, engine)
			return false, err
		}

		record, err := s.submitter.Complete(ctx, engine.Definition(), session.RespondentClass, session.Answers)
		if err != nil {
			*session = *before
			return false, err
		}

		logger.Info("Survey session completed",
			zap.String("session_id", session.ID.String()),
			zap.String("survey_id", session.SurveyID.String()),
			zap.String("response_id", record.ID.String()),
			zap.Int("answer_count", len(record.Answers)),
		)

		snapshot = Snapshot{
			SessionID:   session.ID,
			SurveyID:    session.SurveyID,
			SurveyTitle: engine.Definition().Title,
			Progress:    engine.Progress(session),
			Answers:     record.Answers,
			Completed:   true,
			ResponseID:  record.ID,
		}
		return true, nil
	})
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Back steps to the previous question. ExitToStart is set when the session is
// already on its first step.
func (s *Service) Back(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	_, span := s.tracer.Start(ctx, "Back")
	defer span.End()

	var snapshot Snapshot
	err := s.store.With(id, func(session *Session, engine *Engine) (bool, error) {
		if !engine.GoBack(session) {
			snapshot = Snapshot{SessionID: session.ID, SurveyID: session.SurveyID, ExitToStart: true}
			return false, nil
		}

		var err error
		snapshot, err = s.snapshot(session, engine)
		return false, err
	})
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Service) Abandon(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "Abandon")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	err := s.store.Delete(id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	logger.Debug("Survey session abandoned", zap.String("session_id", id.String()))
	return nil
}

func (s *Service) snapshot(session *Session, engine *Engine) (Snapshot, error) {
	current, err := engine.Current(session)
	if err != nil {
		return Snapshot{}, err
	}

	definition := engine.Definition()
	answers := response.OrderAnswers(definition, session.Answers)

	return Snapshot{
		SessionID:     session.ID,
		SurveyID:      session.SurveyID,
		SurveyTitle:   definition.Title,
		Question:      current,
		IsConditional: definition.IsConditional(current.ID),
		Progress:      engine.Progress(session),
		Answers:       answers,
		CanGoBack:     len(session.History) > 0,
		Completed:     session.Completed,
	}, nil
}
