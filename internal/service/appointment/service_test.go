package appointment

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/payment"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/slot"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type fakeProvider struct {
	requests []payment.CheckoutRequest
	err      error
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.requests = append(p.requests, req)
	return "https://checkout.example/session", nil
}

type fixture struct {
	store    *repository.Store
	svc      *Service
	payments *fakeProvider
	patient  *model.Account
	other    *model.Account
	doctor   *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	m := metrics.NewNop()
	payments := &fakeProvider{}

	f := &fixture{
		store:    store,
		payments: payments,
		svc: NewService(store, slot.NewLedger(store.Doctors, m), payments,
			event.NewService(store.Outbox, nil), m, nil, "https://clinic.example"),
	}

	f.patient = model.NewAccount(model.RolePatient, "Pat", "pat@clinic.io", "hash")
	require.NoError(t, store.Accounts.Create(ctx, f.patient))
	f.other = model.NewAccount(model.RolePatient, "Other", "other@clinic.io", "hash")
	require.NoError(t, store.Accounts.Create(ctx, f.other))

	f.doctor = model.NewDoctor(model.NewAccount(model.RoleDoctor, "Dr. House", "house@clinic.io", "hash"))
	f.doctor.Fees = 50
	require.NoError(t, store.Doctors.Create(ctx, f.doctor))
	return f
}

func (f *fixture) book(t *testing.T, patient *model.Account, date, time string) *model.Appointment {
	t.Helper()
	apt, err := f.svc.Book(context.Background(), patient.ID, BookRequest{
		DocID: f.doctor.ID.String(), SlotDate: date, SlotTime: time,
	})
	require.NoError(t, err)
	return apt
}

func (f *fixture) booked(t *testing.T, date, time string) bool {
	t.Helper()
	doc, err := f.store.Doctors.Get(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	return doc.SlotsBooked.IsBooked(date, time)
}

func message(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Message
}

func TestBookCancelRebook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt := f.book(t, f.patient, "2024_01_15", "10:00")
	assert.Equal(t, 50.0, apt.Amount)
	assert.Equal(t, "Pat", apt.UserData.Name)
	assert.Equal(t, "Dr. House", apt.DocData.Name)
	assert.False(t, apt.Payment || apt.IsCompleted || apt.IsRated || apt.Cancelled)
	assert.Equal(t, model.CancelledByNone, apt.CancelledBy)
	assert.True(t, f.booked(t, "2024_01_15", "10:00"))

	_, err := f.svc.Book(ctx, f.other.ID, BookRequest{DocID: f.doctor.ID.String(), SlotDate: "2024_01_15", SlotTime: "10:00"})
	assert.Equal(t, "Slot Not Available", message(t, err))

	require.NoError(t, f.svc.Cancel(ctx, model.Principal{AccountID: f.patient.ID, Role: model.RolePatient}, apt.ID.String(), ""))
	assert.False(t, f.booked(t, "2024_01_15", "10:00"))

	got, err := f.store.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.Equal(t, model.CancelledByPatient, got.CancelledBy)
	assert.Equal(t, "No reason provided", got.ReasonToCancel)

	f.book(t, f.other, "2024_01_15", "10:00")
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.patient.ID, BookRequest{DocID: f.doctor.ID.String(), SlotDate: "1_1_2025"})
	assert.Equal(t, "Missing Details", message(t, err))

	_, err = f.svc.Book(ctx, f.patient.ID, BookRequest{DocID: uuid.NewString(), SlotDate: "1_1_2025", SlotTime: "9:00"})
	assert.Equal(t, "Doctor not found", message(t, err))

	_, err = f.svc.Book(ctx, f.patient.ID, BookRequest{DocID: "not-a-uuid", SlotDate: "1_1_2025", SlotTime: "9:00"})
	assert.Equal(t, "Doctor not found", message(t, err))

	require.NoError(t, f.store.Doctors.SetAvailability(ctx, f.doctor.ID, false))
	_, err = f.svc.Book(ctx, f.patient.ID, BookRequest{DocID: f.doctor.ID.String(), SlotDate: "1_1_2025", SlotTime: "9:00"})
	assert.Equal(t, "Doctor Not Available", message(t, err))
	assert.False(t, f.booked(t, "1_1_2025", "9:00"))
}

type failingAppointments struct {
	repository.AppointmentRepository
}

func (failingAppointments) Create(context.Context, *model.Appointment) error {
	return stderrors.New("insert failed")
}

func TestBookReleasesSlotWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	f.svc.appointments = failingAppointments{f.store.Appointments}

	_, err := f.svc.Book(context.Background(), f.patient.ID, BookRequest{
		DocID: f.doctor.ID.String(), SlotDate: "2_2_2025", SlotTime: "9:00",
	})
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.False(t, f.booked(t, "2_2_2025", "9:00"))
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, f.patient, "3_3_2025", "11:00")

	err := f.svc.Cancel(ctx, model.Principal{AccountID: f.other.ID, Role: model.RolePatient}, apt.ID.String(), "")
	assert.Equal(t, "Unauthorized action", message(t, err))

	err = f.svc.Cancel(ctx, model.Principal{AccountID: uuid.New(), Role: model.RoleDoctor}, apt.ID.String(), "")
	assert.Equal(t, "Unauthorized to cancel this appointment", message(t, err))

	err = f.svc.Cancel(ctx, model.Principal{Role: model.RoleManager}, uuid.NewString(), "")
	assert.Equal(t, "Appointment not found", message(t, err))

	require.NoError(t, f.svc.Cancel(ctx, model.Principal{AccountID: f.doctor.ID, Role: model.RoleDoctor}, apt.ID.String(), "Sick"))
	err = f.svc.Cancel(ctx, model.Principal{Role: model.RoleAdmin}, apt.ID.String(), "")
	assert.Equal(t, "Appointment already cancelled", message(t, err))

	got, err := f.store.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CancelledByDoctor, got.CancelledBy)
	assert.Equal(t, "Sick", got.ReasonToCancel)
}

func TestCompletedAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, f.patient, "4_4_2025", "12:00")

	err := f.svc.Complete(ctx, uuid.New(), apt.ID.String())
	assert.Equal(t, "Unauthorized action", message(t, err))

	require.NoError(t, f.svc.Complete(ctx, f.doctor.ID, apt.ID.String()))
	assert.True(t, f.booked(t, "4_4_2025", "12:00"), "completion keeps the slot")

	err = f.svc.Cancel(ctx, model.Principal{AccountID: f.patient.ID, Role: model.RolePatient}, apt.ID.String(), "")
	assert.Equal(t, "Completed appointments cannot be cancelled", message(t, err))
	err = f.svc.Cancel(ctx, model.Principal{AccountID: f.doctor.ID, Role: model.RoleDoctor}, apt.ID.String(), "")
	assert.Equal(t, "Completed appointments cannot be cancelled", message(t, err))

	require.NoError(t, f.svc.Cancel(ctx, model.Principal{Role: model.RoleManager}, apt.ID.String(), ""))
	got, err := f.store.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CancelledByManager, got.CancelledBy)
}

func TestCompleteCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, f.patient, "5_5_2025", "9:00")
	require.NoError(t, f.svc.Cancel(ctx, model.Principal{Role: model.RoleAdmin}, apt.ID.String(), ""))

	err := f.svc.Complete(ctx, f.doctor.ID, apt.ID.String())
	assert.Equal(t, "Appointment Cancelled", message(t, err))
}

func TestPaymentSessionForBookedAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, f.patient, "6_6_2025", "9:00")

	sessionURL, err := f.svc.CreatePaymentSession(ctx, f.patient.ID, apt.ID.String(), "https://app.example/")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/session", sessionURL)
	require.Len(t, f.payments.requests, 1)
	req := f.payments.requests[0]
	assert.Equal(t, 50.0, req.Amount)
	assert.Equal(t, "https://app.example/verify?success=true&appointmentId="+apt.ID.String(), req.SuccessURL)
	assert.Equal(t, "https://app.example/verify?success=false&appointmentId="+apt.ID.String(), req.CancelURL)

	msg, err := f.svc.VerifyPayment(ctx, f.patient.ID, VerifyRequest{Success: "true", AppointmentID: apt.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "Payment Successful", msg)
	got, err := f.store.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.True(t, got.Payment)

	require.NoError(t, f.svc.Cancel(ctx, model.Principal{Role: model.RoleAdmin}, apt.ID.String(), ""))
	_, err = f.svc.CreatePaymentSession(ctx, f.patient.ID, apt.ID.String(), "")
	assert.Equal(t, "Appointment Cancelled or not found", message(t, err))
}

func TestPayFirstRechecksSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := BookRequest{DocID: f.doctor.ID.String(), SlotDate: "7_7_2025", SlotTime: "10:30 AM"}

	_, err := f.svc.InitiatePayment(ctx, f.patient.ID, req, "")
	require.NoError(t, err)
	assert.False(t, f.booked(t, req.SlotDate, req.SlotTime), "initiating payment reserves nothing")
	require.Len(t, f.payments.requests, 1)
	assert.Equal(t, "7/7/2025 at 10:30 AM", f.payments.requests[0].Description)
	assert.Contains(t, f.payments.requests[0].SuccessURL, "https://clinic.example/verify?success=true&")

	// a direct booking wins the slot during the payment window
	f.book(t, f.other, req.SlotDate, req.SlotTime)

	verify := VerifyRequest{Success: "true", DocID: req.DocID, SlotDate: req.SlotDate, SlotTime: req.SlotTime}
	_, err = f.svc.VerifyPayment(ctx, f.patient.ID, verify)
	assert.Equal(t, "Slot was booked by someone else", message(t, err))

	verify.SlotTime = "11:30 AM"
	msg, err := f.svc.VerifyPayment(ctx, f.patient.ID, verify)
	require.NoError(t, err)
	assert.Equal(t, "Appointment booked and payment successful", msg)

	apts, err := f.svc.ListForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, apts, 1)
	assert.True(t, apts[0].Payment)
	assert.True(t, f.booked(t, "7_7_2025", "11:30 AM"))
}

func TestInitiatePaymentRejectsTakenSlot(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.other, "8_8_2025", "9:00")

	_, err := f.svc.InitiatePayment(context.Background(), f.patient.ID,
		BookRequest{DocID: f.doctor.ID.String(), SlotDate: "8_8_2025", SlotTime: "9:00"}, "")
	assert.Equal(t, "Slot Not Available", message(t, err))
}

func TestVerifyPaymentFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyPayment(ctx, f.patient.ID, VerifyRequest{Success: "false", AppointmentID: uuid.NewString()})
	assert.Equal(t, "Payment Failed", message(t, err))

	_, err = f.svc.VerifyPayment(ctx, f.patient.ID, VerifyRequest{Success: "true"})
	assert.Equal(t, "Payment Failed", message(t, err))
}

func TestProviderFailureIsDependencyError(t *testing.T) {
	f := newFixture(t)
	f.payments.err = stderrors.New("stripe down")
	apt := f.book(t, f.patient, "9_9_2025", "9:00")

	_, err := f.svc.CreatePaymentSession(context.Background(), f.patient.ID, apt.ID.String(), "")
	assert.True(t, errors.Is(err, errors.ErrDependency))
}

func TestBookingRecordsEvents(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.patient, "10_10_2025", "9:00")

	events, err := f.store.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)
}
