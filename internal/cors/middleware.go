package cors

import (
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const (
	allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowedHeaders = "Authorization, Content-Type, traceparent, tracestate"
)

type Middleware struct {
	logger       *zap.Logger
	allowOrigins []string
}

func NewMiddleware(logger *zap.Logger, allowOrigins []string) *Middleware {
	return &Middleware{
		logger:       logger,
		allowOrigins: allowOrigins,
	}
}

func (m *Middleware) allowed(origin string) bool {
	return slices.Contains(m.allowOrigins, "*") || slices.Contains(m.allowOrigins, origin)
}

func (m *Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !m.allowed(origin) {
				m.logger.Debug("Rejected CORS origin", zap.String("origin", origin), zap.String("path", r.URL.Path))
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", strings.Join([]string{"Content-Disposition"}, ", "))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}
