package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schoolerp/backend/internal/infrastructure/auth"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Context keys and header names used by the bearer-token check
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTMiddlewareConfig configures JWTAuthMiddlewareWithConfig.
// OnError replaces the default 401 body when set.
type JWTMiddlewareConfig struct {
	JWTService       *auth.JWTService
	SkipPaths        []string
	SkipPathPrefixes []string
	OnError          func(c *gin.Context, err error)
	Logger           *zap.Logger
}

// DefaultJWTConfig leaves the provider webhook, health probes and swagger
// open. Everything else under /api needs a tenant token.
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService:       jwtService,
		SkipPaths:        []string{"/health", "/api/v1/health", "/api/v1/schoolpay/webhook"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// JWTAuthMiddleware requires a valid access token using DefaultJWTConfig
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig validates the bearer token and stores the
// tenant and user on both the gin and request contexts.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, reason := bearerToken(c.GetHeader(AuthHeaderKey))
		if reason != "" {
			rejectToken(c, cfg, auth.ErrInvalidToken, reason)
			return
		}
		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectToken(c, cfg, err, "token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)

		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (cfg JWTMiddlewareConfig) skips(path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token; a non-empty reason means the header is unusable
func bearerToken(header string) (token, reason string) {
	switch {
	case header == "":
		return "", "missing authorization header"
	case !strings.HasPrefix(header, BearerPrefix):
		return "", "authorization header is not a bearer token"
	}
	token = strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}

var tokenRejections = []struct {
	err     error
	code    string
	message string
}{
	{auth.ErrExpiredToken, "TOKEN_EXPIRED", "Token has expired"},
	{auth.ErrInvalidTokenType, "INVALID_TOKEN_TYPE", "Invalid token type"},
	{auth.ErrTokenNotYetValid, "TOKEN_NOT_VALID", "Token is not yet valid"},
	{auth.ErrMissingTenantID, "INVALID_CLAIMS", "Token is missing tenant or user"},
	{auth.ErrMissingUserID, "INVALID_CLAIMS", "Token is missing tenant or user"},
	{auth.ErrInvalidToken, "INVALID_TOKEN", "Invalid token"},
}

func rejectToken(c *gin.Context, cfg JWTMiddlewareConfig, err error, reason string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("Rejected API token",
			zap.Error(err),
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, message := "UNAUTHORIZED", "Authentication required"
	for _, r := range tokenRejections {
		if errors.Is(err, r.err) {
			code, message = r.code, r.message
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

// GetJWTClaims returns the validated claims, or nil on unauthenticated routes
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(JWTClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

func GetJWTTenantID(c *gin.Context) string {
	return c.GetString(JWTTenantIDKey)
}
