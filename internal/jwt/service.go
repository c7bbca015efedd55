package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	Issuer    = "survey-backend"
	AdminRole = "admin"
)

var ErrNotAdminToken = errors.New("token does not carry the admin role")

type Service struct {
	logger     *zap.Logger
	tracer     trace.Tracer
	secret     string
	expiration time.Duration
	now        func() time.Time
}

func NewService(logger *zap.Logger, secret string, expiration time.Duration) *Service {
	return &Service{
		logger:     logger,
		tracer:     otel.Tracer("jwt/service"),
		secret:     secret,
		expiration: expiration,
		now:        time.Now,
	}
}

type claims struct {
	Role string
	jwt.RegisteredClaims
}

// New issues an admin token and returns it with its expiry.
func (s Service) New(ctx context.Context) (string, time.Time, error) {
	traceCtx, span := s.tracer.Start(ctx, "New")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	jwtID := uuid.New()
	now := s.now()
	expiresAt := now.Add(s.expiration)

	tokenClaims := &claims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   AdminRole,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jwtID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		logger.Error("failed to sign token", zap.Error(err), zap.String("token_id", jwtID.String()))
		span.RecordError(err)
		return "", time.Time{}, err
	}

	logger.Debug("Generated admin JWT token", zap.String("token_id", jwtID.String()), zap.Time("expires_at", expiresAt))
	return tokenString, expiresAt, nil
}

// Parse validates an admin token and returns its token id. A "Bearer " prefix
// is accepted.
func (s Service) Parse(ctx context.Context, tokenString string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "Parse")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	secret := func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	}

	tokenClaims := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, tokenClaims, secret,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			logger.Warn("Failed to parse JWT token due to malformed structure, this is not a JWT token", zap.String("error", err.Error()))
			return "", err
		case errors.Is(err, jwt.ErrSignatureInvalid), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			logger.Warn("Failed to parse JWT token due to invalid signature", zap.String("error", err.Error()))
			return "", err
		case errors.Is(err, jwt.ErrTokenExpired):
			expiredTime, getErr := token.Claims.GetExpirationTime()
			if getErr != nil || expiredTime == nil {
				logger.Warn("Failed to parse JWT token due to expired timestamp", zap.String("error", err.Error()))
				return "", err
			}
			logger.Warn("Failed to parse JWT token due to expired timestamp", zap.String("error", err.Error()), zap.Time("expired_at", expiredTime.Time))
			return "", err
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			logger.Warn("Failed to parse JWT token due to not valid yet timestamp", zap.String("error", err.Error()))
			return "", err
		default:
			logger.Error("Failed to parse JWT token", zap.Error(err))
			return "", err
		}
	}

	if tokenClaims.Role != AdminRole {
		logger.Warn("JWT token without admin role", zap.String("role", tokenClaims.Role), zap.String("token_id", tokenClaims.ID))
		return "", ErrNotAdminToken
	}

	return tokenClaims.ID, nil
}
