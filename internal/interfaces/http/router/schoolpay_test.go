package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/schoolerp/backend/internal/interfaces/http/handler"
	"github.com/schoolerp/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

func TestSchoolPayRoutes_Describe(t *testing.T) {
	group := SchoolPayRoutes(testHandlers())

	assert.Equal(t, []string{
		"GET /schoolpay/settings",
		"GET /schoolpay/sync/history",
		"GET /schoolpay/transactions",
		"GET /schoolpay/transactions/:id",
		"POST /schoolpay/sync",
		"POST /schoolpay/transactions/:id/reconcile",
		"PUT /schoolpay/settings",
	}, group.Describe())
}

// testHandlers wires handlers with nil services; the tests below never
// let a request reach them.
func testHandlers() SchoolPayHandlers {
	return SchoolPayHandlers{
		Webhook:      handler.NewSchoolPayWebhookHandler(nil, nil),
		Sync:         handler.NewSchoolPaySyncHandler(nil),
		Transactions: handler.NewSchoolPayTransactionHandler(nil),
		Settings:     handler.NewSchoolPaySettingsHandler(nil),
		Health:       handler.NewHealthHandler(nil, nil),
	}
}

func TestMount(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	Mount(engine, MountConfig{
		Auth:           deny,
		Swagger:        middleware.SwaggerConfig{Enabled: false},
		SwaggerHandler: func(c *gin.Context) { c.Status(http.StatusOK) },
	}, testHandlers())

	t.Run("health is public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health").Code)
	})

	t.Run("api routes require auth", func(t *testing.T) {
		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/api/v1/schoolpay/sync"},
			{http.MethodGet, "/api/v1/schoolpay/sync/history"},
			{http.MethodGet, "/api/v1/schoolpay/transactions"},
			{http.MethodGet, "/api/v1/schoolpay/settings"},
			{http.MethodPut, "/api/v1/schoolpay/settings"},
			{http.MethodPost, "/api/v1/schoolpay/transactions/abc/reconcile"},
		} {
			assert.Equal(t, http.StatusUnauthorized, serve(engine, route.method, route.path).Code, route.path)
		}
	})

	t.Run("webhook bypasses auth", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, DefaultWebhookPath, strings.NewReader("not json")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid payload"}`, w.Body.String())
	})

	t.Run("disabled swagger answers 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/swagger/index.html").Code)
	})
}

func TestMount_CustomWebhookPathAndRateLimit(t *testing.T) {
	engine := gin.New()
	Mount(engine, MountConfig{
		WebhookPath:    "/hooks/schoolpay",
		WebhookLimiter: middleware.NewRateLimiter(0.001, 1),
	}, testHandlers())

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/hooks/schoolpay", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/hooks/schoolpay", strings.NewReader("{}")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/swagger/index.html").Code,
		"swagger is not mounted without a handler")
}
