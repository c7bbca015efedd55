package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware_HandlerFunc(t *testing.T) {
	testCases := []struct {
		name           string
		method         string
		origin         string
		preflight      bool
		expectedOrigin string
		expectedStatus int
		expectNext     bool
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://survey.example", expectedOrigin: "https://survey.example", expectedStatus: http.StatusOK, expectNext: true},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example", expectedOrigin: "", expectedStatus: http.StatusOK, expectNext: true},
		{name: "preflight", method: http.MethodOptions, origin: "https://survey.example", preflight: true, expectedOrigin: "https://survey.example", expectedStatus: http.StatusNoContent, expectNext: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMiddleware(zap.NewNop(), []string{"https://survey.example"})

			called := false
			handler := m.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tc.method, "/api/healthz", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			require.Equal(t, tc.expectNext, called)
			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Equal(t, tc.expectedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
