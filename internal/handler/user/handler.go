package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/registration"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// RegisterRequest is the text part of the multipart sign-up form. The ID
// images travel as frontImage and backImage files.
type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Phone    string `form:"phone" json:"phone"`
	FIN      string `form:"fin" json:"fin"`
}

type StatusRequest struct {
	FIN string `form:"fin" json:"fin"`
}

// ProfileRequest accepts the address either as an object (JSON bodies) or as
// a JSON-encoded string (multipart forms).
type ProfileRequest struct {
	Name    string         `form:"name" json:"name"`
	Phone   string         `form:"phone" json:"phone"`
	Address *model.Address `form:"address" json:"address"`
	DOB     string         `form:"dob" json:"dob"`
	Gender  string         `form:"gender" json:"gender"`
}

type Handler struct {
	registrations *registration.Service
	accounts      *account.Service
}

func NewHandler(registrations *registration.Service, accounts *account.Service) *Handler {
	return &Handler{registrations: registrations, accounts: accounts}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !handler.Bind(c, &req) {
		return
	}
	front, err := handler.FormFile(c, "frontImage")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	back, err := handler.FormFile(c, "backImage")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	err = h.registrations.Register(c.Request.Context(), registration.RegisterRequest{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		FIN:        req.FIN,
		FrontImage: front,
		BackImage:  back,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, registration.MsgSubmitted, nil)
}

func (h *Handler) CheckStatus(c *gin.Context) {
	var req StatusRequest
	if !handler.Bind(c, &req) {
		return
	}

	st, err := h.registrations.CheckStatus(c.Request.Context(), req.FIN)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, st.Message, gin.H{"status": st.Status})
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	acc, err := h.accounts.Profile(c.Request.Context(), p.AccountID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "userData", acc)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if !handler.Bind(c, &req) {
		return
	}
	image, err := handler.FormFile(c, "image")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	update := account.ProfileRequest{
		Name:   req.Name,
		Phone:  req.Phone,
		DOB:    req.DOB,
		Gender: req.Gender,
		Image:  image,
	}
	if req.Address != nil {
		update.Address = *req.Address
	}

	if err := h.accounts.UpdateProfile(c.Request.Context(), p.AccountID, update); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Profile Updated", nil)
}
