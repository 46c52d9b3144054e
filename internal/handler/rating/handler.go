package rating

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/service/rating"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type SubmitRequest struct {
	AppointmentID string `json:"appointmentId" form:"appointmentId"`
	Rating        int    `json:"rating" form:"rating"`
	Review        string `json:"review" form:"review" binding:"max=2000"`
}

type Handler struct {
	svc *rating.Service
}

func NewHandler(svc *rating.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Submit(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if !handler.Bind(c, &req) {
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), p.AccountID, rating.SubmitRequest{
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Review:        req.Review,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Rating submitted successfully", gin.H{
		"newAverageRating": res.NewAverageRating,
		"totalRatings":     res.TotalRatings,
	})
}

// ForDoctor is public.
func (h *Handler) ForDoctor(c *gin.Context) {
	ratings, err := h.svc.ListForDoctor(c.Request.Context(), c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "ratings", ratings)
}

func (h *Handler) Pending(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	apts, err := h.svc.Pending(c.Request.Context(), p.AccountID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "pendingRatings", apts)
}
