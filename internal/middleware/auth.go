package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const (
	ContextPrincipal = "principal"

	MsgNotAuthorized = "Not Authorized Login Again"
	MsgForbidden     = "You do not have permission to access this resource"
)

// tokenHeaders are the per-role headers older clients still send.
var tokenHeaders = []string{"token", "dtoken", "mtoken", "atoken", "admintoken"}

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the token and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			httputil.Abort(c, MsgNotAuthorized)
			return
		}

		principal, err := m.tokens.Verify(raw)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("token rejected")
			httputil.Abort(c, MsgNotAuthorized)
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			httputil.Abort(c, MsgNotAuthorized)
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		httputil.Abort(c, MsgForbidden)
	}
}

// Require combines Authenticate and RequireRole.
func (m *AuthMiddleware) Require(roles ...model.Role) gin.HandlersChain {
	return gin.HandlersChain{m.Authenticate(), m.RequireRole(roles...)}
}

func PrincipalFrom(c *gin.Context) (*model.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*model.Principal)
	return p, ok && p != nil
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	for _, name := range tokenHeaders {
		if v := c.GetHeader(name); v != "" {
			return v
		}
	}
	return ""
}
