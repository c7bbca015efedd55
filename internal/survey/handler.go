package survey

import (
	"context"
	"io"
	"net/http"
	"time"

	"NYCU-SDC/survey-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxImportSize = 1 << 20

type OptionRequest struct {
	ID             string  `json:"id" validate:"required,question_id"`
	Text           string  `json:"text" validate:"required"`
	NextQuestionID *string `json:"nextQuestionId"`
}

type QuestionRequest struct {
	ID         string          `json:"id" validate:"required,question_id"`
	Text       string          `json:"text" validate:"required"`
	Type       string          `json:"type" validate:"required,oneof=SINGLE_CHOICE TEXT RATING EMAIL PHONE"`
	IsRequired bool            `json:"isRequired"`
	Options    []OptionRequest `json:"options" validate:"dive"`
}

type Request struct {
	Title          string            `json:"title" validate:"required"`
	Description    string            `json:"description"`
	TargetAudience string            `json:"targetAudience" validate:"omitempty,audience"`
	Questions      []QuestionRequest `json:"questions" validate:"dive"`
}

type StatusRequest struct {
	IsActive       *bool  `json:"isActive" validate:"required"`
	TargetAudience string `json:"targetAudience" validate:"required,audience"`
}

type OptionResponse struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	NextQuestionID *string `json:"nextQuestionId"`
}

type QuestionResponse struct {
	ID            string           `json:"id"`
	Text          string           `json:"text"`
	Type          string           `json:"type"`
	IsRequired    bool             `json:"isRequired"`
	IsConditional bool             `json:"isConditional"`
	Options       []OptionResponse `json:"options"`
}

type Response struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	IsActive       bool               `json:"isActive"`
	TargetAudience string             `json:"targetAudience"`
	Questions      []QuestionResponse `json:"questions"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type StatusUpdateResponse struct {
	SurveyID       string  `json:"surveyId"`
	IsActive       bool    `json:"isActive"`
	TargetAudience *string `json:"targetAudience"`
}

type ActiveResponse struct {
	Available bool      `json:"available"`
	Survey    *Response `json:"survey,omitempty"`
}

func ToQuestionResponse(q Question, conditional bool) QuestionResponse {
	options := make([]OptionResponse, 0, len(q.Options))
	for _, opt := range q.Options {
		var next *string
		if opt.NextQuestionID != "" {
			id := opt.NextQuestionID
			next = &id
		}
		options = append(options, OptionResponse{
			ID:             opt.ID,
			Text:           opt.Text,
			NextQuestionID: next,
		})
	}

	return QuestionResponse{
		ID:            q.ID,
		Text:          q.Text,
		Type:          string(q.Type),
		IsRequired:    q.IsRequired,
		IsConditional: conditional,
		Options:       options,
	}
}

// ToResponse converts a Definition into an API Response.
func ToResponse(d *Definition) Response {
	questions := make([]QuestionResponse, 0, len(d.Questions))
	for _, q := range d.Questions {
		questions = append(questions, ToQuestionResponse(q, d.IsConditional(q.ID)))
	}

	return Response{
		ID:             d.ID.String(),
		Title:          d.Title,
		Description:    d.Description,
		IsActive:       d.IsActive,
		TargetAudience: AudienceToUppercase(d.TargetAudience),
		Questions:      questions,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r Request) ToDraft() (Draft, error) {
	audience := TargetAudienceAll
	if r.TargetAudience != "" {
		var err error
		audience, err = AudienceFromAPIFormat(r.TargetAudience)
		if err != nil {
			return Draft{}, err
		}
	}

	questions := make([]Question, 0, len(r.Questions))
	for _, q := range r.Questions {
		options := make([]Option, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, Option{
				ID:             opt.ID,
				Text:           opt.Text,
				NextQuestionID: NormalizeNextQuestionID(opt.NextQuestionID),
			})
		}
		questions = append(questions, Question{
			ID:         q.ID,
			Text:       q.Text,
			Type:       QuestionType(q.Type),
			IsRequired: q.IsRequired,
			Options:    options,
		})
	}

	return Draft{
		Title:          r.Title,
		Description:    r.Description,
		TargetAudience: audience,
		Questions:      questions,
	}, nil
}

type Store interface {
	List(ctx context.Context) ([]*Definition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Definition, error)
	Upsert(ctx context.Context, id uuid.UUID, draft Draft) (*Definition, error)
	Import(ctx context.Context, document []byte) (*Definition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ActiveForClass(ctx context.Context, class RespondentClass) (*Definition, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, isActive bool, audience TargetAudience) ([]StatusUpdate, error)
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store Store
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("survey/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	definitions, err := h.store.List(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]Response, 0, len(definitions))
	for _, d := range definitions {
		responses = append(responses, ToResponse(d))
	}
	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	definition, err := h.store.GetByID(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(definition))
}

func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req Request
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	draft, err := req.ToDraft()
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	definition, err := h.store.Upsert(traceCtx, uuid.Nil, draft)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	logger.Info("Survey created", zap.String("survey_id", definition.ID.String()), zap.Int("question_count", len(definition.Questions)))
	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(definition))
}

// UpdateHandler replaces the survey content. targetAudience only applies when
// the id does not exist yet; existing surveys change audience via the status
// endpoint.
func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req Request
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	draft, err := req.ToDraft()
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	definition, err := h.store.Upsert(traceCtx, id, draft)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(definition))
}

func (h *Handler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ImportHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	document, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidRequestBody, logger)
		return
	}

	definition, err := h.store.Import(traceCtx, document)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	logger.Info("Survey imported", zap.String("survey_id", definition.ID.String()), zap.Int("question_count", len(definition.Questions)))
	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(definition))
}

func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "DeleteHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	err = h.store.Delete(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}

func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SetStatusHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req StatusRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	audience, err := AudienceFromAPIFormat(req.TargetAudience)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	updates, err := h.store.SetStatus(traceCtx, id, *req.IsActive, audience)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]StatusUpdateResponse, 0, len(updates))
	for _, u := range updates {
		var target *string
		if u.TargetAudience != nil {
			a := AudienceToUppercase(*u.TargetAudience)
			target = &a
		}
		responses = append(responses, StatusUpdateResponse{
			SurveyID:       u.SurveyID.String(),
			IsActive:       u.IsActive,
			TargetAudience: target,
		})
	}

	logger.Info("Survey status changed",
		zap.String("survey_id", id.String()),
		zap.Bool("is_active", *req.IsActive),
		zap.String("target_audience", req.TargetAudience),
		zap.Int("update_count", len(updates)),
	)
	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}

// ActiveHandler is the public landing lookup: ?userType=GENERAL|EMPLOYEE.
func (h *Handler) ActiveHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ActiveHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	class, err := RespondentClassFromAPIFormat(r.URL.Query().Get("userType"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	definition, ok, err := h.store.ActiveForClass(traceCtx, class)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if !ok {
		handlerutil.WriteJSONResponse(w, http.StatusOK, ActiveResponse{Available: false})
		return
	}

	response := ToResponse(definition)
	handlerutil.WriteJSONResponse(w, http.StatusOK, ActiveResponse{Available: true, Survey: &response})
}
