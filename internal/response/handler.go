package response

import (
	"context"
	"net/http"
	"time"

	"NYCU-SDC/survey-backend/internal/survey"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ValueResponse struct {
	QuestionID   string `json:"questionId"`
	Answer       any    `json:"answer"`
	QuestionText string `json:"questionText"`
}

type RecordResponse struct {
	ID          string          `json:"id"`
	SurveyID    string          `json:"surveyId"`
	UserType    string          `json:"userType"`
	Answers     []ValueResponse `json:"answers"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

type ListResponse struct {
	SurveyID  string           `json:"surveyId"`
	Total     int              `json:"total"`
	Responses []RecordResponse `json:"responses"`
}

func ToRecordResponse(r Record) RecordResponse {
	answers := make([]ValueResponse, 0, len(r.Answers))
	for _, v := range r.Answers {
		answers = append(answers, ValueResponse(v))
	}

	return RecordResponse{
		ID:          r.ID.String(),
		SurveyID:    r.SurveyID.String(),
		UserType:    survey.RespondentClassToUppercase(r.UserType),
		Answers:     answers,
		SubmittedAt: r.SubmittedAt,
	}
}

type Store interface {
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Record, error)
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	problemWriter *problem.HttpWriter

	store Store
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("response/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	records, err := h.store.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, ToRecordResponse(record))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ListResponse{
		SurveyID:  surveyID.String(),
		Total:     len(responses),
		Responses: responses,
	})
}
