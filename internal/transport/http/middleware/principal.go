// Package middleware holds echo middleware for the gateway's API.
package middleware

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rr-brian/rts-ai/internal/domain"
)

// Identity headers injected by the hosting platform's authentication layer.
const (
	HeaderPrincipalID   = "X-MS-CLIENT-PRINCIPAL-ID"
	HeaderPrincipalName = "X-MS-CLIENT-PRINCIPAL-NAME"
	HeaderPrincipal     = "X-MS-CLIENT-PRINCIPAL"
)

const principalKey = "principal"

const roleClaimURI = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

type clientPrincipal struct {
	RoleType string `json:"role_typ"`
	Claims   []struct {
		Type  string `json:"typ"`
		Value string `json:"val"`
	} `json:"claims"`
}

// Principal stores the caller identity on the context. Requests without
// identity headers get an unauthenticated principal.
func Principal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(principalKey, ParsePrincipal(c.Request().Header.Get(HeaderPrincipalID),
				c.Request().Header.Get(HeaderPrincipalName),
				c.Request().Header.Get(HeaderPrincipal)))
			return next(c)
		}
	}
}

// ParsePrincipal builds a principal from the identity header values. A
// malformed encoded principal yields no roles.
func ParsePrincipal(id, name, encoded string) domain.Principal {
	p := domain.Principal{
		ID:            strings.TrimSpace(id),
		Name:          strings.TrimSpace(name),
		Roles:         []string{},
		Authenticated: strings.TrimSpace(id) != "",
	}
	if encoded == "" {
		return p
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return p
	}
	var cp clientPrincipal
	if err := json.Unmarshal(raw, &cp); err != nil {
		return p
	}
	for _, claim := range cp.Claims {
		if claim.Type == "roles" || claim.Type == roleClaimURI || (cp.RoleType != "" && claim.Type == cp.RoleType) {
			p.Roles = append(p.Roles, claim.Value)
		}
	}
	return p
}

// PrincipalFrom returns the principal stored by Principal.
func PrincipalFrom(c echo.Context) domain.Principal {
	if p, ok := c.Get(principalKey).(domain.Principal); ok {
		return p
	}
	return domain.Principal{}
}
