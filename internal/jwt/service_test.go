package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_NewAndParse(t *testing.T) {
	service := NewService(zap.NewNop(), "test-secret", time.Hour)

	token, expiresAt, err := service.New(context.Background())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	id, err := service.Parse(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestService_Parse_Rejects(t *testing.T) {
	issuer := NewService(zap.NewNop(), "test-secret", time.Hour)
	validToken, _, err := issuer.New(context.Background())
	require.NoError(t, err)

	otherSecret := NewService(zap.NewNop(), "another-secret", time.Hour)

	expiredIssuer := NewService(zap.NewNop(), "test-secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expiredIssuer.New(context.Background())
	require.NoError(t, err)

	userToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	testCases := []struct {
		name        string
		service     *Service
		token       string
		expectedErr error
	}{
		{name: "malformed", service: issuer, token: "not-a-token", expectedErr: jwt.ErrTokenMalformed},
		{name: "wrong secret", service: otherSecret, token: validToken, expectedErr: jwt.ErrTokenSignatureInvalid},
		{name: "expired", service: issuer, token: expiredToken, expectedErr: jwt.ErrTokenExpired},
		{name: "not an admin", service: issuer, token: userToken, expectedErr: ErrNotAdminToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.service.Parse(context.Background(), tc.token)
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
