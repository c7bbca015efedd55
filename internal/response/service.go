package response

import (
	"context"
	"encoding/json"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/metrics"
	"NYCU-SDC/survey-backend/internal/survey"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Response, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Response, error)
	CountBySurveyID(ctx context.Context, surveyID uuid.UUID) (int64, error)
}

type Service struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	queries Querier
	metrics *metrics.Collector
	now     func() time.Time
}

func NewService(logger *zap.Logger, db DBTX, collector *metrics.Collector) *Service {
	return &Service{
		logger:  logger,
		tracer:  otel.Tracer("response/service"),
		queries: New(db),
		metrics: collector,
		now:     time.Now,
	}
}

func NewServiceForTesting(logger *zap.Logger, tracer trace.Tracer, querier Querier, collector *metrics.Collector, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		logger:  logger,
		tracer:  tracer,
		queries: querier,
		metrics: collector,
		now:     now,
	}
}

// Complete accumulates the answers of a finished traversal and stores the
// resulting record.
func (s *Service) Complete(ctx context.Context, definition *survey.Definition, class survey.RespondentClass, answers map[string]Value) (Record, error) {
	return s.Submit(ctx, Accumulate(definition, class, answers, s.now()))
}

// Submit stores a record. The insert runs to completion even when the caller's
// context is cancelled, and a failed insert is always returned to the caller.
func (s *Service) Submit(ctx context.Context, record Record) (Record, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	payload, err := json.Marshal(record.Answers)
	if err != nil {
		logger.Error("Failed to marshal response answers", zap.Error(err), zap.String("response_id", record.ID.String()))
		span.RecordError(err)
		return Record{}, internal.ErrMarshalAnswers
	}

	dbParams := map[string]interface{}{
		"id":           record.ID.String(),
		"survey_id":    record.SurveyID.String(),
		"user_type":    string(record.UserType),
		"answer_count": len(record.Answers),
	}
	tracker := logutil.StartDBOperation(ctx, logger, "Submit", dbParams)

	row, err := s.queries.Create(ctx, CreateParams{
		ID:          record.ID,
		SurveyID:    record.SurveyID,
		UserType:    RespondentClass(record.UserType),
		Answers:     payload,
		SubmittedAt: pgtype.Timestamptz{Time: record.SubmittedAt, Valid: true},
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "insert survey response")
		span.RecordError(err)
		return Record{}, err
	}

	tracker.SuccessWrite(row.ID.String())
	s.metrics.ResponseSubmitted(survey.RespondentClassToUppercase(record.UserType))

	return FromRow(row, logger), nil
}

// ListBySurveyID returns the responses of a survey, newest first.
func (s *Service) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Record, error) {
	ctx, span := s.tracer.Start(ctx, "ListBySurveyID")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	rows, err := s.queries.ListBySurveyID(ctx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "responses", "survey_id", surveyID.String(), logger, "list responses by survey id")
		span.RecordError(err)
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, FromRow(row, logger))
	}
	return records, nil
}

func (s *Service) CountBySurveyID(ctx context.Context, surveyID uuid.UUID) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "CountBySurveyID")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	count, err := s.queries.CountBySurveyID(ctx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "responses", "survey_id", surveyID.String(), logger, "count responses by survey id")
		span.RecordError(err)
		return 0, err
	}

	return count, nil
}
