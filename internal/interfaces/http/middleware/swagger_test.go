package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/erp/productsync/internal/infrastructure/config"
)

func serveSwagger(cfg config.SwaggerConfig, auth gin.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "swagger"})
	})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	w := serveSwagger(config.SwaggerConfig{Enabled: false}, nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ROUTE_NOT_FOUND"`)
}

func TestSwaggerProtection_Enabled_NoRestrictions(t *testing.T) {
	w := serveSwagger(config.SwaggerConfig{Enabled: true}, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection_AllowList(t *testing.T) {
	cfg := config.SwaggerConfig{
		Enabled:    true,
		AllowedIPs: []string{"127.0.0.1", "10.0.0.0/8", "not-an-ip"},
	}

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"10.20.30.40:5555", http.StatusOK},
		{"192.168.1.1:12345", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.want, serveSwagger(cfg, nil, tt.remote).Code)
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	deny := func(c *gin.Context) {
		AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	allow := func(c *gin.Context) {
		c.Set(JWTSubjectKey, "ops")
	}
	cfg := config.SwaggerConfig{Enabled: true, RequireAuth: true}

	assert.Equal(t, http.StatusUnauthorized, serveSwagger(cfg, deny, "").Code)
	assert.Equal(t, http.StatusOK, serveSwagger(cfg, allow, "").Code)
}

func TestSwaggerProtection_IPCheckedBeforeAuth(t *testing.T) {
	called := false
	auth := func(c *gin.Context) {
		called = true
	}
	cfg := config.SwaggerConfig{
		Enabled:     true,
		RequireAuth: true,
		AllowedIPs:  []string{"127.0.0.1"},
	}

	w := serveSwagger(cfg, auth, "192.168.1.1:12345")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)
}

func TestParseAllowList(t *testing.T) {
	ips, nets := parseAllowList([]string{" ::1 ", "10.0.0.0/8", "bogus", "300.0.0.0/8"})

	assert.Len(t, ips, 1)
	assert.Len(t, nets, 1)
	assert.True(t, isIPAllowed(ips[0], ips, nets))
	assert.False(t, isIPAllowed(nil, ips, nets))
}
