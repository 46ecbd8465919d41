package middlewares

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"axiapac.com/biometrics/security"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authentication(secret))
	r.GET("/whoami", func(c *gin.Context) {
		identity, _ := c.Get(IdentityKey)
		c.JSON(http.StatusOK, identity)
	})
	return r
}

func TestAuthentication(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	encoded := base64.StdEncoding.EncodeToString(secret)

	valid, err := security.CreateServiceToken(security.DefaultServiceIdentity(), encoded, time.Hour)
	require.NoError(t, err)
	expired, err := security.CreateServiceToken(security.DefaultServiceIdentity(), encoded, -time.Minute)
	require.NoError(t, err)
	foreign, err := security.CreateServiceToken(security.DefaultServiceIdentity(),
		base64.StdEncoding.EncodeToString([]byte("another-secret-another-secret!!")), time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString(secret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "bearer token", header: "Bearer " + valid, status: http.StatusOK, body: `"unique_name":"assists-sync"`},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusOK},
		{name: "cookie", cookie: valid, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized, body: "missing token"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, body: "malformed"},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized, body: "token expired"},
		{name: "wrong secret", header: "Bearer " + foreign, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "no expiry", header: "Bearer " + noExpiry, status: http.StatusUnauthorized, body: "invalid token"},
	}

	r := newRouter(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "axiapac.ApplicationCookie", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}
