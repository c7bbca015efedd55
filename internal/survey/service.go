package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/cache"
	"NYCU-SDC/survey-backend/internal/metrics"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// activationLockKey serializes status changes across every backend instance.
const activationLockKey int64 = 0x5355525645590001

type Querier interface {
	Upsert(ctx context.Context, arg UpsertParams) (Survey, error)
	GetByID(ctx context.Context, id uuid.UUID) (Survey, error)
	List(ctx context.Context) ([]Survey, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, arg SetStatusParams) (Survey, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	LockActivation(ctx context.Context, pgAdvisoryXactLock int64) error
}

// Pool is a DBTX that can also open transactions, such as *pgxpool.Pool.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Draft is the operator-authored content of a survey.
type Draft struct {
	Title          string
	Description    string
	TargetAudience TargetAudience
	Questions      []Question
}

type Service struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	queries   Querier
	withTx    func(ctx context.Context, fn func(q Querier) error) error
	cache     Cache
	cacheTTL  time.Duration
	metrics   *metrics.Collector
	sanitizer *bluemonday.Policy
}

func NewService(logger *zap.Logger, db Pool, definitionCache Cache, cacheTTL time.Duration, collector *metrics.Collector) *Service {
	return &Service{
		logger:  logger,
		tracer:  otel.Tracer("survey/service"),
		queries: New(db),
		withTx: func(ctx context.Context, fn func(q Querier) error) error {
			return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
				return fn(New(db).WithTx(tx))
			})
		},
		cache:     definitionCache,
		cacheTTL:  cacheTTL,
		metrics:   collector,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// NewServiceForTesting builds a Service whose transactions run directly on
// the given querier.
func NewServiceForTesting(logger *zap.Logger, tracer trace.Tracer, querier Querier, definitionCache Cache, collector *metrics.Collector) *Service {
	if definitionCache == nil {
		definitionCache = cache.Noop{}
	}
	return &Service{
		logger:  logger,
		tracer:  tracer,
		queries: querier,
		withTx: func(ctx context.Context, fn func(q Querier) error) error {
			return fn(querier)
		},
		cache:     definitionCache,
		metrics:   collector,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Cached definitions live under a per-survey generation. Invalidation moves
// the generation forward, so a definition read from the database before an
// invalidation is written under a key no later reader looks up.
const initialGeneration = "0"

func generationKey(id uuid.UUID) string {
	return "survey:" + id.String() + ":generation"
}

func cacheKey(id uuid.UUID, generation string) string {
	return "survey:" + id.String() + ":" + generation
}

func (s *Service) List(ctx context.Context) ([]*Definition, error) {
	ctx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	tracker := logutil.StartDBOperation(ctx, logger, "List", nil)

	rows, err := s.queries.List(ctx)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "list surveys")
		span.RecordError(err)
		return nil, err
	}

	tracker.SuccessRead(len(rows), "")

	definitions := make([]*Definition, 0, len(rows))
	for _, row := range rows {
		definitions = append(definitions, FromRow(row, logger))
	}
	return definitions, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Definition, error) {
	ctx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	generation, cacheable := s.generation(ctx, logger, id)
	if cacheable {
		if cached, ok := s.getCached(ctx, logger, id, generation); ok {
			return cached, nil
		}
	}

	dbParams := map[string]interface{}{
		"id": id.String(),
	}
	tracker := logutil.StartDBOperation(ctx, logger, "GetByID", dbParams)

	row, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrSurveyNotFound)
			return nil, internal.ErrSurveyNotFound
		}
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "get survey by id")
		span.RecordError(err)
		return nil, err
	}

	tracker.SuccessRead(1, id.String())

	definition := FromRow(row, logger)
	if cacheable {
		s.setCached(ctx, logger, definition, generation)
	}
	return definition, nil
}

// Upsert creates the survey when id is uuid.Nil or unknown, otherwise replaces
// its content. Activation state is never changed here, see SetStatus.
func (s *Service) Upsert(ctx context.Context, id uuid.UUID, draft Draft) (*Definition, error) {
	ctx, span := s.tracer.Start(ctx, "Upsert")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	if id == uuid.Nil {
		id = uuid.New()
	}

	questions, err := s.prepareQuestions(draft.Questions)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	payload, err := json.Marshal(questions)
	if err != nil {
		logger.Error("Failed to marshal survey questions", zap.Error(err), zap.String("survey_id", id.String()))
		span.RecordError(err)
		return nil, internal.ErrMarshalQuestions
	}

	audience := draft.TargetAudience
	if audience == "" {
		audience = TargetAudienceAll
	}

	dbParams := map[string]interface{}{
		"id":              id.String(),
		"title":           draft.Title,
		"target_audience": string(audience),
		"question_count":  len(questions),
	}
	tracker := logutil.StartDBOperation(ctx, logger, "Upsert", dbParams)

	row, err := s.queries.Upsert(ctx, UpsertParams{
		ID:             id,
		Title:          s.sanitize(draft.Title),
		Description:    s.sanitize(draft.Description),
		Questions:      payload,
		TargetAudience: audience,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "upsert survey")
		span.RecordError(err)
		return nil, err
	}

	tracker.SuccessWrite(row.ID.String())
	s.invalidate(ctx, logger, row.ID)

	return FromRow(row, logger), nil
}

// Import stores a legacy survey document. Imported surveys always start
// inactive; the document's isActive flag is ignored.
func (s *Service) Import(ctx context.Context, document []byte) (*Definition, error) {
	ctx, span := s.tracer.Start(ctx, "Import")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	definition, err := NormalizeDocument(document)
	if err != nil {
		logger.Warn("Rejected survey document", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", internal.ErrInvalidRequestBody, err)
	}

	return s.Upsert(ctx, definition.ID, Draft{
		Title:          definition.Title,
		Description:    definition.Description,
		TargetAudience: definition.TargetAudience,
		Questions:      definition.Questions,
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	dbParams := map[string]interface{}{
		"id": id.String(),
	}
	tracker := logutil.StartDBOperation(ctx, logger, "Delete", dbParams)

	affected, err := s.queries.DeleteByID(ctx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithTracker(err, tracker, "delete survey")
		span.RecordError(err)
		return err
	}

	if affected == 0 {
		span.RecordError(internal.ErrSurveyNotFound)
		return internal.ErrSurveyNotFound
	}

	tracker.SuccessWrite(id.String())
	s.invalidate(ctx, logger, id)

	return nil
}

// ActiveForClass finds the survey a respondent of the given class should
// take. The boolean is false when no survey is currently available.
func (s *Service) ActiveForClass(ctx context.Context, class RespondentClass) (*Definition, bool, error) {
	ctx, span := s.tracer.Start(ctx, "ActiveForClass")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	definitions, err := s.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	definition, ok := PickForClass(definitions, class)
	if !ok {
		logger.Debug("No survey available for respondent class", zap.String("respondent_class", string(class)))
		return nil, false, nil
	}

	return definition, true, nil
}

// SetStatus activates or deactivates a survey. The read of all surveys and
// every resulting write happen in one transaction holding an advisory lock,
// so two operators activating overlapping surveys cannot both win.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, isActive bool, audience TargetAudience) ([]StatusUpdate, error) {
	ctx, span := s.tracer.Start(ctx, "SetStatus")
	defer span.End()
	logger := logutil.WithContext(ctx, s.logger)

	entryParams := map[string]interface{}{
		"id":              id.String(),
		"is_active":       isActive,
		"target_audience": string(audience),
	}
	methodTracker := logutil.StartMethod(ctx, logger, "SetStatus", entryParams)

	var updates []StatusUpdate
	err := s.withTx(ctx, func(q Querier) error {
		err := q.LockActivation(ctx, activationLockKey)
		if err != nil {
			return databaseutil.WrapDBError(err, logger, "lock survey activation")
		}

		rows, err := q.List(ctx)
		if err != nil {
			return databaseutil.WrapDBError(err, logger, "list surveys for activation")
		}

		definitions := make([]*Definition, 0, len(rows))
		found := false
		for _, row := range rows {
			if row.ID == id {
				found = true
			}
			definitions = append(definitions, FromRow(row, logger))
		}
		if !found {
			return internal.ErrSurveyNotFound
		}

		updates = ResolveActivation(id, isActive, audience, definitions)

		for _, u := range updates {
			if u.TargetAudience != nil {
				_, err = q.SetStatus(ctx, SetStatusParams{
					ID:             u.SurveyID,
					IsActive:       u.IsActive,
					TargetAudience: *u.TargetAudience,
				})
				if err != nil {
					return databaseutil.WrapDBErrorWithKeyValue(err, "surveys", "id", u.SurveyID.String(), logger, "set survey status")
				}
				continue
			}

			err = q.Deactivate(ctx, u.SurveyID)
			if err != nil {
				return databaseutil.WrapDBErrorWithKeyValue(err, "surveys", "id", u.SurveyID.String(), logger, "deactivate overlapping survey")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.SurveyID)
		if u.IsActive {
			s.metrics.SurveyActivated(AudienceToUppercase(audience))
		} else {
			s.metrics.SurveyDeactivated()
		}
	}
	s.invalidate(ctx, logger, ids...)

	methodTracker.Complete(map[string]interface{}{
		"update_count": len(updates),
	})

	return updates, nil
}

// prepareQuestions sanitizes display text and normalizes jump targets.
func (s *Service) prepareQuestions(questions []Question) ([]Question, error) {
	seen := make(map[string]struct{}, len(questions))
	prepared := make([]Question, 0, len(questions))

	for _, q := range questions {
		id := strings.TrimSpace(q.ID)
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("%w: %s", internal.ErrDuplicateQuestionID, id)
		}
		seen[id] = struct{}{}

		questionType := q.Type
		if !questionType.Valid() {
			questionType = QuestionTypeSingleChoice
		}

		next := Question{
			ID:         id,
			Text:       s.sanitize(q.Text),
			Type:       questionType,
			IsRequired: q.IsRequired,
		}

		for _, opt := range q.Options {
			next.Options = append(next.Options, Option{
				ID:             strings.TrimSpace(opt.ID),
				Text:           s.sanitize(opt.Text),
				NextQuestionID: NormalizeNextQuestionID(opt.NextQuestionID),
			})
		}

		prepared = append(prepared, next)
	}

	return prepared, nil
}

func (s *Service) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

// generation returns the current cache generation of a survey. When it cannot
// be read the caller must bypass the cache.
func (s *Service) generation(ctx context.Context, logger *zap.Logger, id uuid.UUID) (string, bool) {
	generation, err := s.cache.Get(ctx, generationKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return initialGeneration, true
		}
		logger.Warn("Failed to read survey cache generation", zap.Error(err), zap.String("survey_id", id.String()))
		s.metrics.CacheRequest(false)
		return "", false
	}
	return generation, true
}

func (s *Service) getCached(ctx context.Context, logger *zap.Logger, id uuid.UUID, generation string) (*Definition, bool) {
	key := cacheKey(id, generation)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("Failed to read survey from cache", zap.Error(err), zap.String("survey_id", id.String()))
		}
		s.metrics.CacheRequest(false)
		return nil, false
	}

	var definition Definition
	if err := json.Unmarshal([]byte(raw), &definition); err != nil {
		logger.Warn("Dropping unreadable cached survey", zap.Error(err), zap.String("survey_id", id.String()))
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn("Failed to delete unreadable cached survey", zap.Error(err), zap.String("survey_id", id.String()))
		}
		s.metrics.CacheRequest(false)
		return nil, false
	}

	s.metrics.CacheRequest(true)
	return definition.Prepare(), true
}

func (s *Service) setCached(ctx context.Context, logger *zap.Logger, definition *Definition, generation string) {
	payload, err := json.Marshal(definition)
	if err != nil {
		logger.Warn("Failed to marshal survey for cache", zap.Error(err), zap.String("survey_id", definition.ID.String()))
		return
	}

	err = s.cache.Set(ctx, cacheKey(definition.ID, generation), string(payload), s.cacheTTL)
	if err != nil {
		logger.Warn("Failed to write survey to cache", zap.Error(err), zap.String("survey_id", definition.ID.String()))
	}
}

// invalidate moves each survey to a fresh generation. Entries of older
// generations are left to expire. The generation outlives any entry written
// under the previous one, so it never falls back to the initial generation
// while a stale entry is still stored.
func (s *Service) invalidate(ctx context.Context, logger *zap.Logger, ids ...uuid.UUID) {
	for _, id := range ids {
		err := s.cache.Set(ctx, generationKey(id), uuid.NewString(), 2*s.cacheTTL)
		if err != nil {
			logger.Warn("Failed to invalidate cached survey", zap.Error(err), zap.String("survey_id", id.String()))
		}
	}
}
