package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

// UnifiedLogin resolves the role from the stored accounts.
func (h *Handler) UnifiedLogin(c *gin.Context) {
	var req LoginRequest
	if !handler.Bind(c, &req) {
		return
	}

	res, err := h.svc.UnifiedLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	respondWithToken(c, res)
}

// Login returns the handler for the per-role login routes.
func (h *Handler) Login(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !handler.Bind(c, &req) {
			return
		}

		res, err := h.svc.Login(c.Request.Context(), role, req.Email, req.Password)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		respondWithToken(c, res)
	}
}

// ChangePassword applies to the caller's own account whatever its role.
func (h *Handler) ChangePassword(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !handler.Bind(c, &req) {
		return
	}

	msg, err := h.svc.ChangePassword(c.Request.Context(), *p, req.CurrentPassword, req.NewPassword)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msg, nil)
}

func (h *Handler) CheckAuth(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"role": p.Role})
}

// Granted answers the role probe routes once the gate let the caller through.
func Granted(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		httputil.RespondWithSuccess(c, message, nil)
	}
}

func respondWithToken(c *gin.Context, res *auth.LoginResult) {
	httputil.RespondWithSuccess(c, "", gin.H{
		"token": res.Token,
		"role":  res.Role,
	})
}
