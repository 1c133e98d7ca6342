package capability

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Requested-With"}
)

// ResolveCORS returns echo's CORS middleware restricted to origins, or a
// permissive fallback when the origin list is unusable.
func ResolveCORS(r *Report, origins []string) echo.MiddlewareFunc {
	return Resolve(r, CORS,
		func() (echo.MiddlewareFunc, error) {
			if err := validateOrigins(origins); err != nil {
				return nil, err
			}
			return middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins:     origins,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				AllowCredentials: true,
			}), nil
		},
		PermissiveCORS,
	)
}

// PermissiveCORS allows any origin and answers every preflight with 204.
func PermissiveCORS() echo.MiddlewareFunc {
	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, methods)
			h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

func validateOrigins(origins []string) error {
	if len(origins) == 0 {
		return fmt.Errorf("no allowed origins configured")
	}
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid origin %q", o)
		}
	}
	return nil
}

