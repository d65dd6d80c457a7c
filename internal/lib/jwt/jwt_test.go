package jwt_test

import (
	"testing"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret-with-enough-length!!")

func TestNewTokenParseToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	tests := []struct {
		name    string
		session models.Session
		issuer  string
		secret  []byte
		wantErr error
	}{
		{
			name:    "valid",
			session: models.Session{ID: "jti-1", Email: "ali@example.com", IssuedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
			issuer:  "ali_portfolio",
			secret:  secret,
		},
		{
			name:    "expired",
			session: models.Session{ID: "jti-2", Email: "ali@example.com", IssuedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
			issuer:  "ali_portfolio",
			secret:  secret,
			wantErr: jwt.ErrTokenExpired,
		},
		{
			name:    "wrong secret",
			session: models.Session{ID: "jti-3", Email: "ali@example.com", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
			issuer:  "ali_portfolio",
			secret:  []byte("another-secret"),
			wantErr: jwt.ErrInvalidToken,
		},
		{
			name:    "wrong issuer",
			session: models.Session{ID: "jti-4", Email: "ali@example.com", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
			issuer:  "someone_else",
			secret:  secret,
			wantErr: jwt.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewToken(tt.session, tt.issuer, tt.secret)
			require.NoError(t, err)

			got, err := jwt.ParseToken(token, "ali_portfolio", secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.session.ID, got.ID)
			assert.Equal(t, tt.session.Email, got.Email)
			assert.True(t, tt.session.IssuedAt.Equal(got.IssuedAt))
			assert.True(t, tt.session.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestParseToken_RejectsUnsignedAndGarbage(t *testing.T) {
	claims := gojwt.RegisteredClaims{
		ID:        "jti",
		Subject:   "ali@example.com",
		Issuer:    "ali_portfolio",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	none, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwt.ParseToken(none, "ali_portfolio", secret)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = jwt.ParseToken("not-a-token", "ali_portfolio", secret)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = jwt.ParseToken("", "ali_portfolio", secret)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
