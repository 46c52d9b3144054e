package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	adminhandler "github.com/jwalitptl/clinic-api/internal/handler/admin"
	appointmenthandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	doctorhandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	resethandler "github.com/jwalitptl/clinic-api/internal/handler/passwordreset"
	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	ratinghandler "github.com/jwalitptl/clinic-api/internal/handler/rating"
	userhandler "github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/payment"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	authsvc "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/internal/service/passwordreset"
	"github.com/jwalitptl/clinic-api/internal/service/rating"
	"github.com/jwalitptl/clinic-api/internal/service/registration"
	"github.com/jwalitptl/clinic-api/internal/service/slot"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	adminEmail  = "admin@clinic.test"
	adminSecret = "admin-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImages struct{}

func (fakeImages) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://img.example/" + name, nil
}

type fakePayments struct{}

func (fakePayments) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (string, error) {
	return "https://checkout.example/session", nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMail) record(kind, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind+":"+to)
	return nil
}

func (f *fakeMail) SendPasswordReset(_ context.Context, to string, _ email.Message) error {
	return f.record("reset", to)
}

func (f *fakeMail) SendRegistrationApproved(_ context.Context, to, _ string) error {
	return f.record("approved", to)
}

func (f *fakeMail) SendRegistrationRejected(_ context.Context, to, _ string) error {
	return f.record("rejected", to)
}

type testServer struct {
	engine   *gin.Engine
	store    *repository.Store
	tokens   auth.JWTService
	notifier notification.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "clinic", "")
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewJWTService("router-test-secret", time.Hour)
	events := event.NewService(store.Outbox, nil)
	mail := &fakeMail{}
	notifier := notification.NewService(mail, nil)
	legacy := config.LegacyConfig{AdminEmail: adminEmail, AdminPassword: adminSecret}

	accounts := account.NewService(store, hasher, fakeImages{}, nil)
	registrations := registration.NewService(store, hasher, fakeImages{}, notifier, events, m, nil)
	dash := dashboard.NewService(store)

	r := NewRouter(middleware.NewAuthMiddleware(tokens), Handlers{
		Auth: authhandler.NewHandler(authsvc.NewService(store, hasher, tokens, legacy, m, nil)),
		User: userhandler.NewHandler(registrations, accounts),
		Appointment: appointmenthandler.NewHandler(appointment.NewService(store,
			slot.NewLedger(store.Doctors, m), fakePayments{}, events, m, nil, "https://clinic.example")),
		Doctor:        doctorhandler.NewHandler(doctor.NewService(store, hasher, fakeImages{}, events, nil), dash),
		Admin:         adminhandler.NewHandler(accounts, registrations, dash),
		Rating:        ratinghandler.NewHandler(rating.NewService(store, events, m, nil)),
		PasswordReset: resethandler.NewHandler(passwordreset.NewService(store, mail, hasher, "https://clinic.example", m, nil)),
		Health:        health.NewHandler(store.Health),
		Metrics:       promhandler.New(reg, "clinic"),
	}, RouterConfig{CORSConfig: middleware.DefaultCORSConfig()})
	r.Setup()

	t.Cleanup(notifier.Wait)
	return &testServer{engine: r.Engine(), store: store, tokens: tokens, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) map[string]interface{} {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) map[string]interface{} {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) register(t *testing.T, fields map[string]string) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range []string{"frontImage", "backImage"} {
		fw, err := mw.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("png"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.serve(t, req)
}

func (s *testServer) token(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := s.tokens.Issue(model.Principal{AccountID: uuid.New(), Role: role, Email: string(role) + "@clinic.test"})
	require.NoError(t, err)
	return tok
}

func first(t *testing.T, body map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	list, ok := body[key].([]interface{})
	require.True(t, ok, "%s missing in %v", key, body)
	require.NotEmpty(t, list)
	return list[0].(map[string]interface{})
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, "UP", s.do(t, http.MethodGet, "/health/live", nil, "")["status"])
	assert.Equal(t, "UP", s.do(t, http.MethodGet, "/health/ready", nil, "")["status"])

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinic_http_requests_total")
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)

	// admin logs in with the configured credentials; the account is created on the way
	login := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": adminEmail, "password": adminSecret}, "")
	require.Equal(t, true, login["success"], login)
	assert.Equal(t, "admin", login["role"])
	adminToken := login["token"].(string)

	added := s.do(t, http.MethodPost, "/api/admin/add-doctor", gin.H{
		"name":       "Dr. Rao",
		"email":      "rao@clinic.test",
		"password":   "doctor-pass",
		"speciality": "General physician",
		"degree":     "MBBS",
		"experience": "4 Years",
		"about":      "Family medicine",
		"fees":       50,
		"address":    gin.H{"line1": "1 Main St", "line2": "Springfield"},
	}, adminToken)
	require.Equal(t, true, added["success"], added)
	assert.Equal(t, "Doctor Added", added["message"])

	reg := s.register(t, map[string]string{
		"name":     "Pat",
		"email":    "pat@clinic.test",
		"password": "patient-pass",
		"phone":    "5550100",
		"fin":      "FIN-001",
	})
	require.Equal(t, true, reg["success"], reg)

	// pending patients are told why they cannot log in yet
	early := s.do(t, http.MethodPost, "/api/user/login", gin.H{"email": "pat@clinic.test", "password": "patient-pass"}, "")
	assert.Equal(t, false, early["success"])
	assert.Equal(t, true, early["pendingStatus"])

	pending := s.do(t, http.MethodGet, "/api/admin/pending-users", nil, adminToken)
	regID := first(t, pending, "pendingUsers")["_id"].(string)
	approved := s.do(t, http.MethodPost, "/api/admin/approve-user", gin.H{"userId": regID}, adminToken)
	require.Equal(t, true, approved["success"], approved)
	again := s.do(t, http.MethodPost, "/api/admin/approve-user", gin.H{"userId": regID}, adminToken)
	assert.Equal(t, false, again["success"])

	status := s.do(t, http.MethodPost, "/api/user/check-status", gin.H{"fin": "FIN-001"}, "")
	assert.Equal(t, "approved", status["status"])

	patientLogin := s.do(t, http.MethodPost, "/api/auth/unified-login", gin.H{"email": "pat@clinic.test", "password": "patient-pass"}, "")
	require.Equal(t, true, patientLogin["success"], patientLogin)
	assert.Equal(t, "user", patientLogin["role"])
	patientToken := patientLogin["token"].(string)

	doctors := s.do(t, http.MethodGet, "/api/doctor/list", nil, "")
	doc := first(t, doctors, "doctors")
	_, hasEmail := doc["email"]
	assert.False(t, hasEmail)
	docID := doc["_id"].(string)

	slotReq := gin.H{"docId": docID, "slotDate": "20_11_2026", "slotTime": "10:00 AM"}
	booked := s.do(t, http.MethodPost, "/api/user/book-appointment", slotReq, patientToken)
	require.Equal(t, true, booked["success"], booked)
	assert.Equal(t, "Appointment Booked", booked["message"])

	taken := s.do(t, http.MethodPost, "/api/user/book-appointment", slotReq, patientToken)
	assert.Equal(t, false, taken["success"])
	assert.Equal(t, "Slot Not Available", taken["message"])

	mine := s.do(t, http.MethodGet, "/api/user/appointments", nil, patientToken)
	aptID := first(t, mine, "appointments")["_id"].(string)

	doctorLogin := s.do(t, http.MethodPost, "/api/auth/doctor/login", gin.H{"email": "rao@clinic.test", "password": "doctor-pass"}, "")
	require.Equal(t, true, doctorLogin["success"], doctorLogin)
	doctorToken := doctorLogin["token"].(string)

	done := s.do(t, http.MethodPost, "/api/doctor/complete-appointment", gin.H{"appointmentId": aptID}, doctorToken)
	require.Equal(t, true, done["success"], done)

	pendingRatings := s.do(t, http.MethodGet, "/api/ratings/pending", nil, patientToken)
	assert.Len(t, pendingRatings["pendingRatings"], 1)

	rated := s.do(t, http.MethodPost, "/api/ratings/submit", gin.H{"appointmentId": aptID, "rating": 5, "review": "Great"}, patientToken)
	require.Equal(t, true, rated["success"], rated)
	assert.Equal(t, 5.0, rated["newAverageRating"])
	assert.Equal(t, 1.0, rated["totalRatings"])

	twice := s.do(t, http.MethodPost, "/api/ratings/submit", gin.H{"appointmentId": aptID, "rating": 1}, patientToken)
	assert.Equal(t, "You have already rated this appointment", twice["message"])

	ratings := s.do(t, http.MethodGet, "/api/ratings/doctor/"+docID, nil, "")
	assert.Len(t, ratings["ratings"], 1)

	dash := s.do(t, http.MethodGet, "/api/doctor/dashboard", nil, doctorToken)
	data := dash["dashData"].(map[string]interface{})
	assert.Equal(t, 50.0, data["earnings"])
	assert.Equal(t, 1.0, data["patients"])

	// completed appointments stay put for patients
	cancel := s.do(t, http.MethodPost, "/api/user/cancel-appointment", gin.H{"appointmentId": aptID}, patientToken)
	assert.Equal(t, false, cancel["success"])

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `clinic_appointments_booked_total{flow="direct"} 1`)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)

	noToken := s.do(t, http.MethodGet, "/api/admin/dashboard", nil, "")
	assert.Equal(t, middleware.MsgNotAuthorized, noToken["message"])

	wrongRole := s.do(t, http.MethodGet, "/api/admin/dashboard", nil, s.token(t, model.RolePatient))
	assert.Equal(t, middleware.MsgForbidden, wrongRole["message"])

	// managers reach the clinic dashboard, admins the extended one
	mgr := s.do(t, http.MethodGet, "/api/manager/dashboard", nil, s.token(t, model.RoleManager))
	require.Equal(t, true, mgr["success"], mgr)
	_, hasManagers := mgr["dashData"].(map[string]interface{})["managers"]
	assert.False(t, hasManagers)

	adm := s.do(t, http.MethodGet, "/api/admin/dashboard", nil, s.token(t, model.RoleAdmin))
	require.Equal(t, true, adm["success"], adm)
	assert.Contains(t, adm["dashData"], "managers")

	check := s.do(t, http.MethodGet, "/api/auth/check-auth", nil, s.token(t, model.RoleDoctor))
	assert.Equal(t, "doctor", check["role"])

	probe := s.do(t, http.MethodGet, "/api/auth/manager-only", nil, s.token(t, model.RoleDoctor))
	assert.Equal(t, false, probe["success"])
	granted := s.do(t, http.MethodGet, "/api/auth/doctor-only", nil, s.token(t, model.RoleDoctor))
	assert.Equal(t, "Doctor access granted", granted["message"])
}

func TestBindingValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, model.RolePatient)

	res := s.do(t, http.MethodPost, "/api/user/book-appointment",
		gin.H{"docId": uuid.NewString(), "slotDate": "tomorrow", "slotTime": "10:00 AM"}, token)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "slotDate must look like 15_1_2024", res["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/user/book-appointment", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", token)
	bad := s.serve(t, req)
	assert.Equal(t, "Invalid request data", bad["message"])

	missing := s.do(t, http.MethodPost, "/api/user/book-appointment", gin.H{}, token)
	assert.Equal(t, "Missing Details", missing["message"])
}

func TestPasswordResetRoutes(t *testing.T) {
	s := newTestServer(t)

	unknown := s.do(t, http.MethodPost, "/api/password-reset/request", gin.H{"email": "nobody@clinic.test"}, "")
	assert.Equal(t, true, unknown["success"])
	assert.Equal(t, passwordreset.MsgRequested, unknown["message"])

	verify := s.do(t, http.MethodGet, "/api/password-reset/verify?token=abc&email=nobody@clinic.test", nil, "")
	assert.Equal(t, false, verify["success"])
	assert.Equal(t, "Invalid or expired reset token", verify["message"])

	empty := s.do(t, http.MethodGet, "/api/password-reset/verify", nil, "")
	assert.Equal(t, "Token and email are required", empty["message"])
}
