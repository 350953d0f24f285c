package util

import (
	"coursehub_backend/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 42}, Role: model.RoleInstructor, Email: "t@example.com"}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.RoleInstructor, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	_, err = ParseJWT(token, "other-secret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseJWTRejectsForeignClaims(t *testing.T) {
	sign := func(c Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &c).SignedString([]byte("secret"))
		require.NoError(t, err)
		return token
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}
	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		claims Claims
	}{
		{name: "unknown role", claims: Claims{UserID: 1, Role: "root", RegisteredClaims: valid()}},
		{name: "missing user", claims: Claims{Role: model.RoleUser, RegisteredClaims: valid()}},
		{name: "other issuer", claims: Claims{UserID: 1, Role: model.RoleUser, RegisteredClaims: otherIssuer}},
		{name: "no expiry", claims: Claims{UserID: 1, Role: model.RoleUser, RegisteredClaims: noExpiry}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJWT(sign(tt.claims), "secret")
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
