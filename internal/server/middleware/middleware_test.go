package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/cycleshop/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	jwtSvc := auth.NewJWTService("test-secret", "cycleshop", time.Hour)
	token := func(role auth.Role) string {
		tok, _, err := jwtSvc.Issue(auth.Principal{UserID: "u1", Username: "asha", Role: role})
		require.NoError(t, err)
		return tok
	}

	r := gin.New()
	r.Use(Authenticate(jwtSvc))
	r.GET("/read", func(c *gin.Context) {
		p, _ := GetPrincipal(c)
		c.String(http.StatusOK, p.Username)
	})
	r.DELETE("/write", Authorize(auth.RoleManager, auth.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", http.MethodGet, "/read", "", http.StatusUnauthorized, `{"error":"Not authorized, no token provided"}`},
		{"not bearer", http.MethodGet, "/read", "Basic abc", http.StatusUnauthorized, `{"error":"Not authorized, no token provided"}`},
		{"garbage token", http.MethodGet, "/read", "Bearer nope", http.StatusUnauthorized, `{"error":"Not authorized, token invalid or expired"}`},
		{"sales reads", http.MethodGet, "/read", "Bearer " + token(auth.RoleSales), http.StatusOK, "asha"},
		{"sales cannot write", http.MethodDelete, "/write", "Bearer " + token(auth.RoleSales), http.StatusForbidden, `{"error":"Access denied. Required role: manager or admin"}`},
		{"manager writes", http.MethodDelete, "/write", "Bearer " + token(auth.RoleManager), http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestAuthorize_WithoutAuthenticate(t *testing.T) {
	r := gin.New()
	r.GET("/", Authorize(auth.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
