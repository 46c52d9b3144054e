package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/handler/admin"
	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/passwordreset"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/handler/rating"
	"github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Handlers groups the route handlers the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	User          *user.Handler
	Appointment   *appointment.Handler
	Doctor        *doctor.Handler
	Admin         *admin.Handler
	Rating        *rating.Handler
	PasswordReset *passwordreset.Handler
	Health        *health.Handler
	Metrics       *prometheus.Handler
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RateIdle         time.Duration
	Timeout          time.Duration
	TLS              bool
	CORSConfig       middleware.CORSConfig
	SizeLimit        middleware.SizeLimitConfig
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	h      Handlers
}

var everyRole = []model.Role{model.RolePatient, model.RoleDoctor, model.RoleManager, model.RoleAdmin}

func NewRouter(authMiddleware *middleware.AuthMiddleware, h Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.Timeout <= 0 {
		config.Timeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.SizeLimit.MaxBodySize == 0 {
		config.SizeLimit = middleware.DefaultSizeLimitConfig()
	}

	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		h.Metrics.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.TLS)),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
			Idle:  config.RateIdle,
		})
		engine.Use(limiter.RateLimit())
	}
	engine.Use(
		middleware.SizeLimit(config.SizeLimit),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
		middleware.Validation(middleware.DefaultValidationConfig()),
	)

	return &Router{
		engine: engine,
		auth:   authMiddleware,
		h:      h,
	}
}

func (r *Router) Setup() {
	r.h.Health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.h.Metrics.Handler())

	api := r.engine.Group("/api")
	api.Use(middleware.NoStore())

	r.setupUserRoutes(api.Group("/user"))
	r.setupDoctorRoutes(api.Group("/doctor"))
	r.setupManagerRoutes(api.Group("/manager"))
	r.setupAdminRoutes(api.Group("/admin"))
	r.setupAuthRoutes(api.Group("/auth"))
	r.setupRatingRoutes(api.Group("/ratings"))
	r.setupPasswordResetRoutes(api.Group("/password-reset"))
}

func (r *Router) setupUserRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", r.h.User.Register)
	rg.POST("/login", r.h.Auth.Login(model.RolePatient))
	rg.POST("/check-status", r.h.User.CheckStatus)

	patient := rg.Group("", r.auth.Require(model.RolePatient)...)
	{
		patient.GET("/get-profile", r.h.User.GetProfile)
		patient.POST("/update-profile", r.h.User.UpdateProfile)
		patient.POST("/change-password", r.h.Auth.ChangePassword)
		patient.POST("/book-appointment", r.h.Appointment.Book)
		patient.GET("/appointments", r.h.Appointment.List)
		patient.POST("/cancel-appointment", r.h.Appointment.Cancel)
		patient.POST("/payment-stripe", r.h.Appointment.PaymentStripe)
		patient.POST("/verifyStripe", r.h.Appointment.VerifyStripe)
		patient.POST("/initiate-appointment-payment", r.h.Appointment.InitiatePayment)
	}
}

func (r *Router) setupDoctorRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", r.h.Auth.Login(model.RoleDoctor))
	rg.GET("/list", r.h.Doctor.List)

	doc := rg.Group("", r.auth.Require(model.RoleDoctor)...)
	{
		doc.GET("/appointments", r.h.Appointment.List)
		doc.POST("/cancel-appointment", r.h.Appointment.Cancel)
		doc.POST("/complete-appointment", r.h.Appointment.Complete)
		doc.GET("/dashboard", r.h.Doctor.Dashboard)
		doc.GET("/profile", r.h.Doctor.Profile)
		doc.POST("/update-profile", r.h.Doctor.UpdateProfile)
		doc.POST("/change-availability", r.h.Doctor.ChangeAvailability)
		doc.POST("/change-password", r.h.Auth.ChangePassword)
	}
}

func (r *Router) setupManagerRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", r.h.Auth.Login(model.RoleManager))

	mgr := rg.Group("", r.auth.Require(model.RoleManager)...)
	{
		mgr.GET("/dashboard", r.h.Admin.Dashboard)
		mgr.POST("/change-password", r.h.Auth.ChangePassword)
	}
	r.setupClinicRoutes(mgr)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", r.h.Auth.Login(model.RoleAdmin))

	adm := rg.Group("", r.auth.Require(model.RoleAdmin)...)
	{
		// first admin comes from bootstrap or the legacy credentials
		adm.POST("/create", r.h.Admin.CreateAdmin)
		adm.POST("/create-manager", r.h.Admin.CreateManager)
		adm.GET("/dashboard", r.h.Admin.Dashboard)
		adm.GET("/pending-users", r.h.Admin.PendingUsers)
		adm.GET("/approved-users", r.h.Admin.ApprovedUsers)
		adm.GET("/rejected-users", r.h.Admin.RejectedUsers)
		adm.POST("/approve-user", r.h.Admin.ApproveUser)
		adm.POST("/reject-user", r.h.Admin.RejectUser)
		adm.GET("/managers", r.h.Admin.Managers)
		adm.POST("/delete-manager", r.h.Admin.DeleteManager)
		adm.POST("/change-password", r.h.Auth.ChangePassword)
	}
	r.setupClinicRoutes(adm)
}

// setupClinicRoutes mounts the clinic operations managers and admins share.
func (r *Router) setupClinicRoutes(rg *gin.RouterGroup) {
	rg.POST("/add-doctor", r.h.Doctor.Add)
	rg.GET("/all-doctors", r.h.Doctor.ListAll)
	rg.GET("/appointments", r.h.Appointment.List)
	rg.POST("/cancel-appointment", r.h.Appointment.Cancel)
	rg.POST("/change-availability", r.h.Doctor.ChangeAvailability)
	rg.POST("/toggle-doctor-status", r.h.Doctor.ToggleActive)
}

func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", r.h.User.Register)
	rg.POST("/unified-login", r.h.Auth.UnifiedLogin)
	rg.POST("/login", r.h.Auth.Login(model.RolePatient))
	rg.POST("/doctor/login", r.h.Auth.Login(model.RoleDoctor))
	rg.POST("/manager/login", r.h.Auth.Login(model.RoleManager))

	rg.GET("/check-auth", append(r.auth.Require(everyRole...), r.h.Auth.CheckAuth)...)
	rg.GET("/manager-only", append(r.auth.Require(model.RoleManager), auth.Granted("Manager access granted"))...)
	rg.GET("/doctor-only", append(r.auth.Require(model.RoleDoctor), auth.Granted("Doctor access granted"))...)
}

func (r *Router) setupRatingRoutes(rg *gin.RouterGroup) {
	rg.GET("/doctor/:doctorId", r.h.Rating.ForDoctor)

	patient := rg.Group("", r.auth.Require(model.RolePatient)...)
	{
		patient.POST("/submit", r.h.Rating.Submit)
		patient.GET("/pending", r.h.Rating.Pending)
	}
}

func (r *Router) setupPasswordResetRoutes(rg *gin.RouterGroup) {
	rg.POST("/request", r.h.PasswordReset.Request)
	rg.POST("/reset", r.h.PasswordReset.Reset)
	rg.GET("/verify", r.h.PasswordReset.Verify)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
