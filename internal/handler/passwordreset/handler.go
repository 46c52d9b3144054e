package passwordreset

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/service/passwordreset"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type RequestRequest struct {
	Email string `json:"email" form:"email"`
}

type ResetRequest struct {
	Token       string `json:"token" form:"token"`
	Email       string `json:"email" form:"email"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

type VerifyQuery struct {
	Token string `form:"token"`
	Email string `form:"email"`
}

type Handler struct {
	svc *passwordreset.Service
}

func NewHandler(svc *passwordreset.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Request(c *gin.Context) {
	var req RequestRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := h.svc.Request(c.Request.Context(), req.Email); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, passwordreset.MsgRequested, nil)
}

func (h *Handler) Reset(c *gin.Context) {
	var req ResetRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := h.svc.Reset(c.Request.Context(), req.Token, req.Email, req.NewPassword); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, passwordreset.MsgReset, nil)
}

func (h *Handler) Verify(c *gin.Context) {
	var q VerifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithMessage(c, handler.MsgBadRequest)
		return
	}

	role, err := h.svc.Verify(c.Request.Context(), q.Token, q.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Token is valid", gin.H{"userType": role})
}
