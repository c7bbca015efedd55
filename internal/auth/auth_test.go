package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NYCU-SDC/survey-backend/internal"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIssuer struct {
	mock.Mock
}

func (m *mockIssuer) New(ctx context.Context) (string, time.Time, error) {
	args := m.Called(ctx)
	expiresAt, _ := args.Get(1).(time.Time)
	return args.String(0), expiresAt, args.Error(2)
}

type mockParser struct {
	mock.Mock
}

func (m *mockParser) Parse(ctx context.Context, tokenString string) (string, error) {
	args := m.Called(ctx, tokenString)
	return args.String(0), args.Error(1)
}

func TestHandler_Login(t *testing.T) {
	expiresAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name           string
		body           string
		setup          func(i *mockIssuer)
		expectedStatus int
	}{
		{
			name: "correct password",
			body: `{"password":"letmein"}`,
			setup: func(i *mockIssuer) {
				i.On("New", mock.Anything).Return("signed-token", expiresAt, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			body:           `{"password":"letmeout"}`,
			setup:          func(i *mockIssuer) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "signing failure",
			body: `{"password":"letmein"}`,
			setup: func(i *mockIssuer) {
				i.On("New", mock.Anything).Return("", time.Time{}, errors.New("boom")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			issuer := &mockIssuer{}
			tc.setup(issuer)
			handler := NewHandler(zap.NewNop(), internal.NewValidator(), internal.NewProblemWriter(), issuer, "letmein", false)

			recorder := httptest.NewRecorder()
			handler.Login(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body)))

			require.Equal(t, tc.expectedStatus, recorder.Code)
			if tc.expectedStatus == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
				require.Equal(t, "signed-token", resp.Token)
				require.Equal(t, "2026-01-01T12:00:00Z", resp.ExpiresAt)

				cookies := recorder.Result().Cookies()
				require.Len(t, cookies, 1)
				require.Equal(t, AccessTokenCookieName, cookies[0].Name)
				require.True(t, cookies[0].HttpOnly)
			}
			issuer.AssertExpectations(t)
		})
	}
}

func TestMiddleware_AuthenticateMiddleware(t *testing.T) {
	testCases := []struct {
		name           string
		prepare        func(r *http.Request)
		setup          func(p *mockParser)
		expectedStatus int
	}{
		{
			name:           "missing token",
			prepare:        func(r *http.Request) {},
			setup:          func(p *mockParser) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong scheme",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic abc")
			},
			setup:          func(p *mockParser) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "invalid token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer forged")
			},
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, "forged").Return("", errors.New("signature is invalid")).Once()
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer good")
			},
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, "good").Return("token-1", nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "cookie token",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "good"})
			},
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, "good").Return("token-1", nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parser := &mockParser{}
			tc.setup(parser)
			middleware := NewMiddleware(zap.NewNop(), internal.NewProblemWriter(), parser)

			next := func(w http.ResponseWriter, r *http.Request) {
				tokenID, ok := internal.GetAdminTokenFromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, "token-1", tokenID)
				w.WriteHeader(http.StatusOK)
			}

			request := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
			tc.prepare(request)
			recorder := httptest.NewRecorder()
			middleware.AuthenticateMiddleware(next)(recorder, request)

			require.Equal(t, tc.expectedStatus, recorder.Code)
			parser.AssertExpectations(t)
		})
	}
}
