package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"NYCU-SDC/survey-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const AccessTokenCookieName = "access_token"

type TokenIssuer interface {
	New(ctx context.Context) (string, time.Time, error)
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	issuer        TokenIssuer
	adminPassword string
	devMode       bool
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	issuer TokenIssuer,
	adminPassword string,
	devMode bool,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("auth/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		issuer:        issuer,
		adminPassword: adminPassword,
		devMode:       devMode,
	}
}

// Login exchanges the admin password for a short-lived access token. The token
// is returned in the body and also set as an HTTP-only cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Login")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req LoginRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		logger.Warn("Admin login rejected", zap.String("remote_addr", r.RemoteAddr))
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAdminPassword, logger)
		return
	}

	token, expiresAt, err := h.issuer.New(traceCtx)
	if err != nil {
		span.RecordError(err)
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
		return
	}

	h.setAccessCookie(w, token, expiresAt)

	logger.Info("Admin logged in", zap.Time("expires_at", expiresAt))
	handlerutil.WriteJSONResponse(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "Logout")
	defer span.End()

	h.clearAccessCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	sameSite := http.SameSiteStrictMode
	if h.devMode {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		SameSite: sameSite,
		Path:     "/",
		Expires:  expiresAt,
	})
}

// clearAccessCookie expires the cookie immediately, a negative MaxAge deletes it
func (h *Handler) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
