package report

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/response"
	"NYCU-SDC/survey-backend/internal/survey"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SurveyGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*survey.Definition, error)
}

type ResponseLister interface {
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]response.Record, error)
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	problemWriter *problem.HttpWriter

	surveys   SurveyGetter
	responses ResponseLister
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, surveys SurveyGetter, responses ResponseLister) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("report/handler"),
		problemWriter: problemWriter,
		surveys:       surveys,
		responses:     responses,
	}
}

func (h *Handler) load(ctx context.Context, r *http.Request) (*survey.Definition, []response.Record, error) {
	id, err := handlerutil.ParseUUID(r.PathValue("surveyId"))
	if err != nil {
		return nil, nil, err
	}

	definition, err := h.surveys.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	records, err := h.responses.ListBySurveyID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return definition, records, nil
}

func (h *Handler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AnalyticsHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	definition, records, err := h.load(traceCtx, r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, Analyze(definition, records))
}

// ExportHandler serves ?format=csv (default) or ?format=xlsx.
func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ExportHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	format := Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrUnsupportedExport, logger)
		return
	}

	definition, records, err := h.load(traceCtx, r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, definition, records)
	default:
		err = WriteCSV(&buf, definition, records)
	}
	if err != nil {
		logger.Error("Failed to export responses", zap.Error(err), zap.String("survey_id", definition.ID.String()), zap.String("format", string(format)))
		span.RecordError(err)
		h.problemWriter.WriteError(traceCtx, w, internal.ErrExportFailed, logger)
		return
	}

	filename := definition.Title
	if strings.TrimSpace(filename) == "" {
		filename = definition.ID.String()
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filename + "_results." + string(format),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	logger.Info("Responses exported", zap.String("survey_id", definition.ID.String()), zap.String("format", string(format)), zap.Int("response_count", len(records)))
}
