package auth

import (
	"testing"
	"time"

	"github.com/erp/servicedesk/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		Issuer:                "erp-backend",
		AccessTokenExpiration: expiration,
	})
}

func sign(t *testing.T, claims *Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestService(time.Minute)
	userID, branchID := uuid.New(), uuid.New()

	token, err := svc.GenerateAccessToken(userID, branchID, "tecnico")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	got, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	gotBranch, err := claims.BranchUUID()
	require.NoError(t, err)
	assert.Equal(t, branchID, gotBranch)
	assert.Equal(t, "tecnico", claims.Username)
}

func TestJWTService_Rejections(t *testing.T) {
	svc := newTestService(time.Minute)
	valid := func() *Claims {
		now := time.Now()
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "erp-backend",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			UserID:    uuid.NewString(),
			BranchID:  uuid.NewString(),
			TokenType: TokenTypeAccess,
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	future := valid()
	future.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))

	refresh := valid()
	refresh.TokenType = "refresh"

	noBranch := valid()
	noBranch.BranchID = ""

	badUser := valid()
	badUser.UserID = "not-a-uuid"

	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", sign(t, valid(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx")), ErrInvalidToken},
		{"wrong algorithm", sign(t, valid(), jwt.SigningMethodHS512, []byte(testSecret)), ErrInvalidToken},
		{"wrong issuer", sign(t, otherIssuer, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken},
		{"expired", sign(t, expired, jwt.SigningMethodHS256, []byte(testSecret)), ErrExpiredToken},
		{"not yet valid", sign(t, future, jwt.SigningMethodHS256, []byte(testSecret)), ErrTokenNotYetValid},
		{"refresh token", sign(t, refresh, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidTokenType},
		{"missing branch", sign(t, noBranch, jwt.SigningMethodHS256, []byte(testSecret)), ErrMissingBranchID},
		{"bad user id", sign(t, badUser, jwt.SigningMethodHS256, []byte(testSecret)), ErrMissingUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
