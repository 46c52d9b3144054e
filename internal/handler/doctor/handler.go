package doctor

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// AddRequest is the text part of the add-doctor form; the photo comes as the
// image file.
type AddRequest struct {
	Name       string         `form:"name" json:"name"`
	Email      string         `form:"email" json:"email"`
	Password   string         `form:"password" json:"password"`
	Speciality string         `form:"speciality" json:"speciality"`
	Degree     string         `form:"degree" json:"degree"`
	Experience string         `form:"experience" json:"experience"`
	About      string         `form:"about" json:"about"`
	Fees       float64        `form:"fees" json:"fees"`
	Address    *model.Address `form:"address" json:"address"`
}

// ProfileRequest leaves fields the client omitted untouched.
type ProfileRequest struct {
	Fees      *float64       `json:"fees" form:"fees"`
	Address   *model.Address `json:"address" form:"address"`
	Available *bool          `json:"available" form:"available"`
	About     *string        `json:"about" form:"about"`
}

type DoctorRequest struct {
	DocID string `json:"docId" form:"docId"`
}

type Handler struct {
	doctors   doctor.Service
	dashboard *dashboard.Service
}

func NewHandler(doctors doctor.Service, dash *dashboard.Service) *Handler {
	return &Handler{doctors: doctors, dashboard: dash}
}

// List is the public catalogue.
func (h *Handler) List(c *gin.Context) {
	doctors, err := h.doctors.ListPublic(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "doctors", doctors)
}

func (h *Handler) ListAll(c *gin.Context) {
	doctors, err := h.doctors.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "doctors", doctors)
}

func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if !handler.Bind(c, &req) {
		return
	}
	image, err := handler.FormFile(c, "image")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	_, err = h.doctors.Add(c.Request.Context(), doctor.AddRequest{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Speciality: req.Speciality,
		Degree:     req.Degree,
		Experience: req.Experience,
		About:      req.About,
		Fees:       req.Fees,
		Address:    req.Address,
		Image:      image,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Doctor Added", nil)
}

func (h *Handler) Profile(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	doc, err := h.doctors.Profile(c.Request.Context(), p.AccountID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "profileData", doc)
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

	err := h.doctors.UpdateProfile(c.Request.Context(), p.AccountID, model.DoctorProfileUpdate{
		Fees:      req.Fees,
		Address:   req.Address,
		Available: req.Available,
		About:     req.About,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Profile Updated", nil)
}

// ChangeAvailability toggles the caller's own flag for doctors and the named
// doctor's flag for staff.
func (h *Handler) ChangeAvailability(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req DoctorRequest
	if !handler.Bind(c, &req) {
		return
	}
	if p.Role == model.RoleDoctor {
		req.DocID = p.AccountID.String()
	}

	if err := h.doctors.ToggleAvailability(c.Request.Context(), req.DocID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Availablity Changed", nil)
}

func (h *Handler) ToggleActive(c *gin.Context) {
	var req DoctorRequest
	if !handler.Bind(c, &req) {
		return
	}

	msg, err := h.doctors.ToggleActive(c.Request.Context(), req.DocID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msg, nil)
}

func (h *Handler) Dashboard(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	data, err := h.dashboard.Doctor(c.Request.Context(), p.AccountID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "dashData", data)
}
