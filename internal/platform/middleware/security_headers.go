package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// SecurityConfig controls SecurityHeaders. HSTSMaxAge of zero omits
// Strict-Transport-Security, which is what development wants.
type SecurityConfig struct {
	HSTSMaxAge int
}

// SecurityHeaders sets response headers for a JSON API that serves patient
// and billing records.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")
			h.Set("Cache-Control", "no-store")
			if hsts != "" {
				h.Set(echo.HeaderStrictTransportSecurity, hsts)
			}
			return next(c)
		}
	}
}
