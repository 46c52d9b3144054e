package appointment

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type BookRequest struct {
	DocID    string `json:"docId" form:"docId"`
	SlotDate string `json:"slotDate" form:"slotDate" binding:"omitempty,slotdate"`
	SlotTime string `json:"slotTime" form:"slotTime"`
}

func (r BookRequest) toService() appointment.BookRequest {
	return appointment.BookRequest{DocID: r.DocID, SlotDate: r.SlotDate, SlotTime: r.SlotTime}
}

type CancelRequest struct {
	AppointmentID string `json:"appointmentId" form:"appointmentId"`
	Reason        string `json:"reasonToCancel" form:"reasonToCancel"`
}

type AppointmentRequest struct {
	AppointmentID string `json:"appointmentId" form:"appointmentId"`
}

// Flag is the payment redirect's success parameter. Clients relay it either
// as the query string value or as a JSON boolean.
type Flag string

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag(strings.Trim(string(b), `"`))
	return nil
}

type VerifyRequest struct {
	Success       Flag   `json:"success" form:"success"`
	AppointmentID string `json:"appointmentId" form:"appointmentId"`
	DocID         string `json:"docId" form:"docId"`
	SlotDate      string `json:"slotDate" form:"slotDate"`
	SlotTime      string `json:"slotTime" form:"slotTime"`
}

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Book(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req BookRequest
	if !handler.Bind(c, &req) {
		return
	}

	if _, err := h.svc.Book(c.Request.Context(), p.AccountID, req.toService()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Booked", nil)
}

// Cancel serves every role; ownership is decided by the caller's role.
func (h *Handler) Cancel(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !handler.Bind(c, &req) {
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), *p, req.AppointmentID, req.Reason); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Cancelled", nil)
}

func (h *Handler) Complete(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req AppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	if err := h.svc.Complete(c.Request.Context(), p.AccountID, req.AppointmentID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Completed", nil)
}

// PaymentStripe opens checkout for a booked appointment.
func (h *Handler) PaymentStripe(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req AppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}

	sessionURL, err := h.svc.CreatePaymentSession(c.Request.Context(), p.AccountID, req.AppointmentID, handler.Origin(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"session_url": sessionURL})
}

// InitiatePayment opens checkout first; the slot is taken on verification.
func (h *Handler) InitiatePayment(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req BookRequest
	if !handler.Bind(c, &req) {
		return
	}

	sessionURL, err := h.svc.InitiatePayment(c.Request.Context(), p.AccountID, req.toService(), handler.Origin(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"session_url": sessionURL})
}

func (h *Handler) VerifyStripe(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req VerifyRequest
	if !handler.Bind(c, &req) {
		return
	}

	msg, err := h.svc.VerifyPayment(c.Request.Context(), p.AccountID, appointment.VerifyRequest{
		Success:       string(req.Success),
		AppointmentID: req.AppointmentID,
		DocID:         req.DocID,
		SlotDate:      req.SlotDate,
		SlotTime:      req.SlotTime,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msg, nil)
}

// List returns the caller's view: own bookings for patients and doctors,
// everything for managers and admins.
func (h *Handler) List(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	var (
		apts []*model.Appointment
		err  error
	)
	ctx := c.Request.Context()
	switch p.Role {
	case model.RolePatient:
		apts, err = h.svc.ListForPatient(ctx, p.AccountID)
	case model.RoleDoctor:
		apts, err = h.svc.ListForDoctor(ctx, p.AccountID)
	default:
		apts, err = h.svc.ListAll(ctx)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "appointments", apts)
}
