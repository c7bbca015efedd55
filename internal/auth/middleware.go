package auth

import (
	"context"
	"net/http"
	"strings"

	"NYCU-SDC/survey-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TokenParser interface {
	Parse(ctx context.Context, tokenString string) (string, error)
}

type Middleware struct {
	tracer trace.Tracer
	logger *zap.Logger

	problemWriter *problem.HttpWriter
	parser        TokenParser
}

func NewMiddleware(logger *zap.Logger, problemWriter *problem.HttpWriter, parser TokenParser) *Middleware {
	return &Middleware{
		tracer:        otel.Tracer("auth/middleware"),
		logger:        logger,
		problemWriter: problemWriter,
		parser:        parser,
	}
}

// AuthenticateMiddleware admits requests carrying a valid admin token, either
// as "Authorization: Bearer <token>" or in the access token cookie.
func (m *Middleware) AuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		token, err := accessToken(r)
		if err != nil {
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		tokenID, err := m.parser.Parse(traceCtx, token)
		if err != nil {
			logger.Debug("Rejected admin request", zap.String("path", r.URL.Path), zap.Error(err))
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidJWTToken, logger)
			return
		}

		next(w, r.WithContext(internal.WithAdminToken(r.Context(), tokenID)))
	}
}

func accessToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie(AccessTokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", internal.ErrMissingAuthHeader
		}
		return cookie.Value, nil
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", internal.ErrInvalidAuthHeaderFormat
	}
	return strings.TrimSpace(token), nil
}
