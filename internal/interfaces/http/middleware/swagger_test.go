package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, authChain ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, authChain...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "swagger"})
	})
	return router
}

func getSwagger(router *gin.Engine, remoteAddr, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	w := getSwagger(swaggerRouter(SwaggerConfig{Enabled: false}), "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestSwaggerProtection_NoRestrictions(t *testing.T) {
	w := getSwagger(swaggerRouter(SwaggerConfig{Enabled: true}), "", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection_IPWhitelist(t *testing.T) {
	router := swaggerRouter(SwaggerConfig{
		Enabled:    true,
		AllowedIPs: []string{"127.0.0.1", "10.1.0.0/16", "not-an-ip"},
	})

	tests := []struct {
		remoteAddr string
		want       int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"10.1.200.3:4000", http.StatusOK},
		{"10.2.0.1:4000", http.StatusForbidden},
		{"192.168.1.100:12345", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			w := getSwagger(router, tt.remoteAddr, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	jwtService := newTestJWTService()
	router := swaggerRouter(
		SwaggerConfig{Enabled: true, RequireAuth: true},
		JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: jwtService}),
		RequireRole("admin"),
	)

	assert.Equal(t, http.StatusUnauthorized, getSwagger(router, "", "").Code)
	assert.Equal(t, http.StatusForbidden,
		getSwagger(router, "", "Bearer "+newTestToken(t, jwtService, "cust-1", "customer")).Code)
	assert.Equal(t, http.StatusOK,
		getSwagger(router, "", "Bearer "+newTestToken(t, jwtService, "ops-1", "admin")).Code)
}

func TestSwaggerConfigFrom(t *testing.T) {
	cfg := SwaggerConfigFrom(config.HTTPConfig{SwaggerEnabled: true, SwaggerAllowedIPs: []string{"10.0.0.0/8"}}, true)

	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.AllowedIPs)
}
