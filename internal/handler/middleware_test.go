package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpn/hpn-chat-gateway/internal/domain"
)

func serve(router http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ctxRequestID))
	})

	t.Run("generates id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/ping", nil)

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("reuses valid caller id", func(t *testing.T) {
		given := uuid.NewString()
		w := serve(router, http.MethodGet, "/ping", http.Header{RequestIDHeader: {given}})
		assert.Equal(t, given, w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces malformed caller id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/ping", http.Header{RequestIDHeader: {"<script>"}})
		assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
	})
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware())
	router.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodOptions, "/api/chat", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(discardLogger()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(router, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger, false))
	router.POST("/api/chat", func(c *gin.Context) {
		c.Set(ctxKeyHint, "sk-1...cdef")
		c.Set(ctxSelection, domain.SelectionResult{
			Messages:   make([]domain.Message, 2),
			TokenCount: 960,
			Dropped:    1,
		})
		c.String(http.StatusOK, "ok")
	})

	w := serve(router, http.MethodPost, "/api/chat", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())

	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/api/chat", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "sk-1...cdef", entry["key_hint"])
	assert.Equal(t, float64(960), entry["token_count"])
	assert.Equal(t, float64(2), entry["kept"])
	assert.Equal(t, float64(1), entry["dropped"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), entry["request_id"])
}

func TestClientLimiter(t *testing.T) {
	limiter := NewClientLimiter(1, 2)

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"), "burst exhausted")
	assert.True(t, limiter.Allow("b"), "clients have separate buckets")
	assert.Equal(t, 2, limiter.Len())

	assert.Equal(t, 0, limiter.Cleanup(time.Hour))
	assert.Equal(t, 2, limiter.Cleanup(-time.Second))
	assert.Equal(t, 0, limiter.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(NewClientLimiter(0.001, 1)))
	router.GET("/api/models", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := serve(router, http.MethodGet, "/api/models", nil)
	second := serve(router, http.MethodGet, "/api/models", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, second.Body.String())
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "client-42",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuthMiddleware(t *testing.T) {
	const secret = "test-secret"

	router := gin.New()
	router.Use(JWTAuthMiddleware(secret))
	router.GET("/api/models", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ctxSubject))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantBody:   "client-42",
		},
		{
			name:       "lowercase scheme",
			header:     "bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantBody:   "client-42",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrMissingToken.Error(),
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrInvalidToken.Error(),
		},
		{
			name:       "wrong algorithm",
			header:     "Bearer " + signToken(t, secret, jwt.SigningMethodHS512, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrInvalidToken.Error(),
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute)),
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrTokenExpired.Error(),
		},
		{
			name:       "garbage",
			header:     "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrInvalidToken.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header http.Header
			if tt.header != "" {
				header = http.Header{"Authorization": {tt.header}}
			}

			w := serve(router, http.MethodGet, "/api/models", header)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, tt.wantBody, errorBody(t, w))
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"Bearer ", "", false},
		{"Bearer    ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
