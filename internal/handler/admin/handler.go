package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/registration"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type StaffRequest struct {
	Name     string         `json:"name" form:"name"`
	Email    string         `json:"email" form:"email"`
	Password string         `json:"password" form:"password"`
	Phone    string         `json:"phone" form:"phone"`
	Address  *model.Address `json:"address" form:"address"`
}

func (r StaffRequest) toService() account.StaffRequest {
	return account.StaffRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Address:  r.Address,
	}
}

type UserRequest struct {
	UserID string `json:"userId" form:"userId"`
}

type ManagerRequest struct {
	ManagerID string `json:"managerId" form:"managerId"`
}

// Handler serves the manager and admin consoles.
type Handler struct {
	accounts      *account.Service
	registrations *registration.Service
	dashboard     *dashboard.Service
}

func NewHandler(accounts *account.Service, registrations *registration.Service, dash *dashboard.Service) *Handler {
	return &Handler{accounts: accounts, registrations: registrations, dashboard: dash}
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req StaffRequest
	if !handler.Bind(c, &req) {
		return
	}
	if _, err := h.accounts.CreateAdmin(c.Request.Context(), req.toService()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Admin created successfully", nil)
}

func (h *Handler) CreateManager(c *gin.Context) {
	var req StaffRequest
	if !handler.Bind(c, &req) {
		return
	}
	if _, err := h.accounts.CreateManager(c.Request.Context(), req.toService()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Manager created successfully", nil)
}

func (h *Handler) Managers(c *gin.Context) {
	managers, err := h.accounts.ListManagers(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "managers", managers)
}

func (h *Handler) DeleteManager(c *gin.Context) {
	var req ManagerRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := h.accounts.DeleteManager(c.Request.Context(), req.ManagerID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Manager deleted successfully", nil)
}

func (h *Handler) ApproveUser(c *gin.Context) {
	var req UserRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := h.registrations.Approve(c.Request.Context(), req.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "User approved successfully", nil)
}

func (h *Handler) RejectUser(c *gin.Context) {
	var req UserRequest
	if !handler.Bind(c, &req) {
		return
	}
	if err := h.registrations.Reject(c.Request.Context(), req.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "User rejected successfully", nil)
}

func (h *Handler) PendingUsers(c *gin.Context) {
	regs, err := h.registrations.ListPending(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "pendingUsers", regs)
}

func (h *Handler) RejectedUsers(c *gin.Context) {
	regs, err := h.registrations.ListRejected(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "rejectedUsers", regs)
}

func (h *Handler) ApprovedUsers(c *gin.Context) {
	accounts, err := h.registrations.ListApproved(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "approvedUsers", accounts)
}

// Dashboard serves the clinic totals to managers and the extended view to
// admins.
func (h *Handler) Dashboard(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	var (
		data interface{}
		err  error
	)
	if p.Role == model.RoleAdmin {
		data, err = h.dashboard.Admin(c.Request.Context())
	} else {
		data, err = h.dashboard.Clinic(c.Request.Context())
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithData(c, "dashData", data)
}
