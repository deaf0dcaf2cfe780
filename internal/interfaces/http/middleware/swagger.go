package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// SwaggerConfig holds configuration for Swagger endpoint protection
type SwaggerConfig struct {
	Enabled     bool     // Whether Swagger endpoint is enabled
	RequireAuth bool     // Require a valid admin token to read the docs
	AllowedIPs  []string // IP whitelist, CIDR notation supported, empty allows all
}

// SwaggerConfigFrom builds a SwaggerConfig from the HTTP settings.
// Production requires authentication on top of any whitelist.
func SwaggerConfigFrom(httpCfg config.HTTPConfig, production bool) SwaggerConfig {
	return SwaggerConfig{
		Enabled:     httpCfg.SwaggerEnabled,
		RequireAuth: production,
		AllowedIPs:  httpCfg.SwaggerAllowedIPs,
	}
}

// SwaggerProtection guards the Swagger endpoints: 404 when disabled, 403
// outside the whitelist, and the auth chain when RequireAuth is set
func SwaggerProtection(cfg SwaggerConfig, authChain ...gin.HandlerFunc) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, s := range cfg.AllowedIPs {
		s = strings.TrimSpace(s)
		if strings.Contains(s, "/") {
			if p, err := netip.ParsePrefix(s); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "API documentation is not available",
				},
			})
			return
		}

		if len(cfg.AllowedIPs) > 0 && !ipAllowed(c.ClientIP(), prefixes) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Access to API documentation is restricted",
				},
			})
			return
		}

		if cfg.RequireAuth {
			for _, h := range authChain {
				h(c)
				if c.IsAborted() {
					return
				}
			}
		}

		c.Next()
	}
}

func ipAllowed(clientIP string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
