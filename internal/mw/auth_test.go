package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(v *TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "email": Email(c)})
	})
	return r
}

func TestAuth(t *testing.T) {
	v := NewTokenVerifier("test-secret", "voltfox")
	router := setupAuthRouter(v)

	valid, err := v.Sign(Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	expired, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)

	other := NewTokenVerifier("other-secret", "voltfox")
	forged, err := other.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}})
	require.NoError(t, err)

	noSubject, err := v.Sign(Claims{Email: "x@example.com"})
	require.NoError(t, err)

	wrongIssuer, err := NewTokenVerifier("test-secret", "someone-else").
		Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"bad signature", "Bearer " + forged, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + wrongIssuer, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user":"alice","email":"alice@example.com"}`, w.Body.String())
			}
		})
	}
}
