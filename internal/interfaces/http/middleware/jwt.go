package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/productsync/internal/infrastructure/auth"
	"github.com/erp/productsync/internal/infrastructure/logger"
	"github.com/erp/productsync/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTSubjectKey  = "jwt_subject"
	JWTUsernameKey = "jwt_username"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// AdminAuthConfig holds configuration for the admin JWT middleware
type AdminAuthConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// SkipPaths are exact paths that don't require authentication
	SkipPaths []string
	// Logger for authentication failures, optional
	Logger *zap.Logger
}

// AdminAuth requires a bearer token carrying the admin role
func AdminAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return AdminAuthWithConfig(AdminAuthConfig{JWTService: jwtService})
}

// AdminAuthWithConfig creates the admin JWT middleware with custom config
func AdminAuthWithConfig(cfg AdminAuthConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			handleAuthError(c, cfg, errMissingBearer)
			return
		}

		claims, err := cfg.JWTService.ValidateAdminToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTSubjectKey, claims.Subject)
		c.Set(JWTUsernameKey, claims.Username)

		ctx := c.Request.Context()
		reqLogger := logger.FromContext(ctx).With(zap.String("admin", claims.Subject))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, reqLogger))
		c.Set(logger.GinContextKey, reqLogger)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

var errMissingBearer = errors.New("missing or malformed bearer token")

// handleAuthError answers 403 for valid non-admin tokens and 401 for everything else
func handleAuthError(c *gin.Context, cfg AdminAuthConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Admin authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)),
		)
	}

	status := http.StatusUnauthorized
	code := dto.ErrCodeUnauthorized
	message := "Invalid token"

	switch {
	case errors.Is(err, errMissingBearer):
		message = "Authentication required"
	case errors.Is(err, auth.ErrNotAdmin):
		status = http.StatusForbidden
		code = dto.ErrCodeForbidden
		message = "Admin role required"
	case errors.Is(err, auth.ErrExpiredToken):
		message = "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	}

	c.Header("WWW-Authenticate", `Bearer realm="productsync"`)
	AbortWithError(c, status, code, message)
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTSubject retrieves the token subject from context
func GetJWTSubject(c *gin.Context) string {
	return c.GetString(JWTSubjectKey)
}
