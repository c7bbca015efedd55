package traversal

import (
	"context"
	"net/http"

	"NYCU-SDC/survey-backend/internal/survey"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type StartRequest struct {
	RespondentClass string `json:"respondentClass" validate:"required,respondent_class"`
}

type AnswerRequest struct {
	Answer   any    `json:"answer"`
	OptionID string `json:"optionId" validate:"omitempty,question_id"`
}

type AnswerValueResponse struct {
	QuestionID   string `json:"questionId"`
	Answer       any    `json:"answer"`
	QuestionText string `json:"questionText"`
}

// SessionResponse is returned by every session endpoint. Only the fields for
// the current state are set.
type SessionResponse struct {
	Available   bool                     `json:"available"`
	SessionID   string                   `json:"sessionId,omitempty"`
	SurveyID    string                   `json:"surveyId,omitempty"`
	SurveyTitle string                   `json:"surveyTitle,omitempty"`
	Question    *survey.QuestionResponse `json:"question,omitempty"`
	Progress    float64                  `json:"progress"`
	Answers     []AnswerValueResponse    `json:"answers,omitempty"`
	CanGoBack   bool                     `json:"canGoBack"`
	Completed   bool                     `json:"completed"`
	ExitToStart bool                     `json:"exitToStart,omitempty"`
	ResponseID  string                   `json:"responseId,omitempty"`
}

func ToSessionResponse(s Snapshot) SessionResponse {
	resp := SessionResponse{
		Available:   true,
		SessionID:   s.SessionID.String(),
		SurveyID:    s.SurveyID.String(),
		SurveyTitle: s.SurveyTitle,
		Progress:    s.Progress,
		CanGoBack:   s.CanGoBack,
		Completed:   s.Completed,
		ExitToStart: s.ExitToStart,
	}

	if s.Question.ID != "" && !s.Completed {
		q := survey.ToQuestionResponse(s.Question, s.IsConditional)
		resp.Question = &q
	}

	if s.ResponseID != uuid.Nil {
		resp.ResponseID = s.ResponseID.String()
	}

	for _, v := range s.Answers {
		resp.Answers = append(resp.Answers, AnswerValueResponse(v))
	}

	return resp
}

type Runner interface {
	Start(ctx context.Context, class survey.RespondentClass) (Snapshot, bool, error)
	Get(ctx context.Context, id uuid.UUID) (Snapshot, error)
	Answer(ctx context.Context, id uuid.UUID, answer any, optionID string) (Snapshot, error)
	Back(ctx context.Context, id uuid.UUID) (Snapshot, error)
	Abandon(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	runner Runner
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, runner Runner) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("traversal/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		runner:        runner,
	}
}

func (h *Handler) StartHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "StartHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req StartRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	class, err := survey.RespondentClassFromAPIFormat(req.RespondentClass)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	snapshot, ok, err := h.runner.Start(traceCtx, class)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if !ok {
		handlerutil.WriteJSONResponse(w, http.StatusOK, SessionResponse{Available: false})
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToSessionResponse(snapshot))
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	snapshot, err := h.runner.Get(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToSessionResponse(snapshot))
}

func (h *Handler) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AnswerHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req AnswerRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	snapshot, err := h.runner.Answer(traceCtx, id, req.Answer, req.OptionID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToSessionResponse(snapshot))
}

func (h *Handler) BackHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "BackHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	snapshot, err := h.runner.Back(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToSessionResponse(snapshot))
}

func (h *Handler) AbandonHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AbandonHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	err = h.runner.Abandon(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}
