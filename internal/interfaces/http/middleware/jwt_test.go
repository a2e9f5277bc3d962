package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/infrastructure/auth"
	"github.com/schoolerp/backend/internal/infrastructure/config"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: expiration,
		Issuer:                "test-issuer",
	})
}

func protectedRouter(jwtService *auth.JWTService) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id":     GetJWTTenantID(c),
			"user_id":       GetJWTUserID(c),
			"ctx_tenant_id": logger.GetTenantID(c.Request.Context()),
		})
	}
	router.POST("/api/v1/schoolpay/sync", handler)
	router.POST("/api/v1/schoolpay/webhook", handler)
	router.GET("/health", handler)
	router.GET("/swagger/index.html", handler)
	return router
}

func authErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	tenantID, userID := uuid.New(), uuid.New()
	token, err := jwtService.GenerateAccessToken(tenantID, userID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schoolpay/sync", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token.Token)
	rec := httptest.NewRecorder()
	protectedRouter(jwtService).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, tenantID.String(), body["tenant_id"])
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, tenantID.String(), body["ctx_tenant_id"])
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	jwtService := newTestJWTService(15 * time.Minute)
	expired, err := newTestJWTService(-time.Minute).GenerateAccessToken(uuid.New(), uuid.New())
	require.NoError(t, err)
	otherIssuer, err := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: time.Minute,
		Issuer:                "someone-else",
	}).GenerateAccessToken(uuid.New(), uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "INVALID_TOKEN"},
		{"not bearer", "Basic abc", "INVALID_TOKEN"},
		{"empty token", BearerPrefix, "INVALID_TOKEN"},
		{"garbage token", BearerPrefix + "not-a-jwt", "INVALID_TOKEN"},
		{"expired token", BearerPrefix + expired.Token, "TOKEN_EXPIRED"},
		{"wrong issuer", BearerPrefix + otherIssuer.Token, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/schoolpay/sync", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			protectedRouter(jwtService).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantCode, authErrorCode(t, rec))
		})
	}
}

func TestJWTAuthMiddleware_DefaultSkipPaths(t *testing.T) {
	router := protectedRouter(newTestJWTService(time.Minute))

	for _, path := range []string{"/api/v1/schoolpay/webhook", "/health", "/swagger/index.html"} {
		t.Run(path, func(t *testing.T) {
			method := http.MethodGet
			if path == "/api/v1/schoolpay/webhook" {
				method = http.MethodPost
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	var gotErr error
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: newTestJWTService(time.Minute),
		OnError: func(c *gin.Context, err error) {
			gotErr = err
			c.AbortWithStatus(http.StatusTeapot)
		},
	}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, gotErr, auth.ErrInvalidToken)
}

func TestJWTContextAccessors_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTTenantID(c))
	assert.Empty(t, GetJWTUserID(c))
}
