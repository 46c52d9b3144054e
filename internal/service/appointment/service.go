package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/payment"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/slot"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	flowDirect   = "direct"
	flowPayFirst = "pay_first"
)

// BookRequest identifies a doctor slot as sent by clients.
type BookRequest struct {
	DocID    string
	SlotDate string
	SlotTime string
}

func (r BookRequest) complete() bool {
	return r.DocID != "" && r.SlotDate != "" && r.SlotTime != ""
}

// VerifyRequest is the payment provider redirect, relayed by the client.
type VerifyRequest struct {
	Success       string
	AppointmentID string
	DocID         string
	SlotDate      string
	SlotTime      string
}

type Service struct {
	accounts      repository.AccountRepository
	doctors       repository.DoctorRepository
	appointments  repository.AppointmentRepository
	ledger        *slot.Ledger
	payments      payment.Provider
	events        event.Recorder
	metrics       *metrics.Metrics
	logger        *logger.Logger
	defaultOrigin string
}

func NewService(
	store *repository.Store,
	ledger *slot.Ledger,
	payments payment.Provider,
	events event.Recorder,
	m *metrics.Metrics,
	log *logger.Logger,
	defaultOrigin string,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts:      store.Accounts,
		doctors:       store.Doctors,
		appointments:  store.Appointments,
		ledger:        ledger,
		payments:      payments,
		events:        events,
		metrics:       m,
		logger:        log.WithComponent("appointment"),
		defaultOrigin: strings.TrimRight(defaultOrigin, "/"),
	}
}

// Book reserves the slot and then stores the appointment. The reservation is
// undone if the appointment cannot be stored.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*model.Appointment, error) {
	if !req.complete() {
		return nil, errors.NewBadRequest("Missing Details", nil)
	}
	doctor, err := s.bookableDoctor(ctx, req.DocID)
	if err != nil {
		return nil, err
	}
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, doctor.ID, req, "Slot Not Available"); err != nil {
		return nil, err
	}

	apt := model.NewAppointment(patient, doctor, req.SlotDate, req.SlotTime)
	if err := s.store(ctx, apt); err != nil {
		return nil, err
	}

	s.metrics.AppointmentsBooked.WithLabelValues(flowDirect).Inc()
	s.events.Record(ctx, model.EventAppointmentBooked, bookedEvent(apt, flowDirect))
	return apt, nil
}

// Cancel applies the ownership and state rules for the acting role, flips the
// cancelled flag conditionally and releases the slot exactly once.
func (s *Service) Cancel(ctx context.Context, actor model.Principal, appointmentID, reason string) error {
	apt, err := s.get(ctx, appointmentID, "Appointment not found")
	if err != nil {
		return err
	}

	switch actor.Role {
	case model.RolePatient:
		if apt.UserID != actor.AccountID {
			return errors.NewForbidden("Unauthorized action", nil)
		}
	case model.RoleDoctor:
		if apt.DocID != actor.AccountID {
			return errors.NewForbidden("Unauthorized to cancel this appointment", nil)
		}
	case model.RoleManager, model.RoleAdmin:
	default:
		return errors.NewForbidden("Unauthorized action", nil)
	}

	if apt.Cancelled {
		return errors.NewConflict("Appointment already cancelled", nil)
	}
	if apt.IsCompleted && (actor.Role == model.RolePatient || actor.Role == model.RoleDoctor) {
		return errors.NewConflict("Completed appointments cannot be cancelled", nil)
	}

	if strings.TrimSpace(reason) == "" {
		reason = model.DefaultCancelReason
	}
	actorTag := model.ActorFor(actor.Role)
	ok, err := s.appointments.Cancel(ctx, apt.ID, actorTag, reason)
	if err != nil {
		return errors.NewInternal(err)
	}
	if !ok {
		return errors.NewConflict("Appointment already cancelled", nil)
	}

	if err := s.ledger.Release(ctx, apt.DocID, apt.SlotDate, apt.SlotTime); err != nil {
		s.logger.Error(err, "failed to release slot after cancellation",
			"appointment_id", apt.ID.String(), "doctor_id", apt.DocID.String(),
			"slot_date", apt.SlotDate, "slot_time", apt.SlotTime)
	}

	s.metrics.AppointmentsCancelled.WithLabelValues(string(actorTag)).Inc()
	s.events.Record(ctx, model.EventAppointmentCancelled, map[string]interface{}{
		"appointmentId": apt.ID,
		"docId":         apt.DocID,
		"userId":        apt.UserID,
		"cancelledBy":   actorTag,
		"reason":        reason,
	})
	return nil
}

// Complete marks the doctor's own appointment completed. The slot stays
// booked.
func (s *Service) Complete(ctx context.Context, doctorID uuid.UUID, appointmentID string) error {
	apt, err := s.get(ctx, appointmentID, "Appointment not found")
	if err != nil {
		return err
	}
	if apt.DocID != doctorID {
		return errors.NewForbidden("Unauthorized action", nil)
	}
	if apt.Cancelled {
		return errors.NewConflict("Appointment Cancelled", nil)
	}
	if apt.IsCompleted {
		return nil
	}

	ok, err := s.appointments.Complete(ctx, apt.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	if !ok {
		return errors.NewConflict("Appointment Cancelled", nil)
	}

	s.metrics.AppointmentsCompleted.Inc()
	s.events.Record(ctx, model.EventAppointmentCompleted, map[string]interface{}{
		"appointmentId": apt.ID,
		"docId":         apt.DocID,
		"userId":        apt.UserID,
	})
	return nil
}

// MarkPaid records a successful payment for an existing appointment.
func (s *Service) MarkPaid(ctx context.Context, patientID uuid.UUID, appointmentID string) error {
	apt, err := s.get(ctx, appointmentID, "Appointment not found")
	if err != nil {
		return err
	}
	if apt.UserID != patientID {
		return errors.NewForbidden("Unauthorized action", nil)
	}
	if err := s.appointments.MarkPaid(ctx, apt.ID); err != nil {
		return errors.NewInternal(err)
	}
	s.events.Record(ctx, model.EventAppointmentPaid, map[string]interface{}{
		"appointmentId": apt.ID,
		"amount":        apt.Amount,
	})
	return nil
}

// CreatePaymentSession starts checkout for an already booked appointment.
func (s *Service) CreatePaymentSession(ctx context.Context, patientID uuid.UUID, appointmentID, origin string) (string, error) {
	apt, err := s.get(ctx, appointmentID, "Appointment Cancelled or not found")
	if err != nil {
		return "", err
	}
	if apt.Cancelled {
		return "", errors.NewNotFound("Appointment Cancelled or not found", nil)
	}
	if apt.UserID != patientID {
		return "", errors.NewForbidden("Unauthorized action", nil)
	}

	base := s.origin(origin) + "/verify?"
	id := url.QueryEscape(apt.ID.String())
	return s.checkout(ctx, payment.CheckoutRequest{
		Name:       "Appointment Fees",
		Amount:     apt.Amount,
		SuccessURL: base + "success=true&appointmentId=" + id,
		CancelURL:  base + "success=false&appointmentId=" + id,
		Metadata:   map[string]string{"appointmentId": apt.ID.String()},
	})
}

// InitiatePayment starts checkout before anything is reserved. The slot is
// booked only when the payment is verified.
func (s *Service) InitiatePayment(ctx context.Context, patientID uuid.UUID, req BookRequest, origin string) (string, error) {
	if !req.complete() {
		return "", errors.NewBadRequest("Missing Details", nil)
	}
	doctor, err := s.bookableDoctor(ctx, req.DocID)
	if err != nil {
		return "", err
	}
	if doctor.SlotsBooked.IsBooked(req.SlotDate, req.SlotTime) {
		return "", errors.NewConflict("Slot Not Available", nil)
	}
	if _, err := s.patient(ctx, patientID); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("docId", doctor.ID.String())
	q.Set("slotDate", req.SlotDate)
	q.Set("slotTime", req.SlotTime)
	base := s.origin(origin) + "/verify?"

	return s.checkout(ctx, payment.CheckoutRequest{
		Name:        "Appointment with Dr. " + doctor.Name,
		Description: strings.ReplaceAll(req.SlotDate, "_", "/") + " at " + req.SlotTime,
		Amount:      doctor.Fees,
		SuccessURL:  base + "success=true&" + q.Encode(),
		CancelURL:   base + "success=false&" + q.Encode(),
		Metadata: map[string]string{
			"userId":   patientID.String(),
			"docId":    doctor.ID.String(),
			"slotDate": req.SlotDate,
			"slotTime": req.SlotTime,
		},
	})
}

// VerifyPayment completes either checkout flow and returns the message for
// the client.
func (s *Service) VerifyPayment(ctx context.Context, patientID uuid.UUID, req VerifyRequest) (string, error) {
	if req.Success != "true" {
		return "", errors.NewBadRequest("Payment Failed", nil)
	}

	if req.AppointmentID != "" {
		if err := s.MarkPaid(ctx, patientID, req.AppointmentID); err != nil {
			return "", err
		}
		return "Payment Successful", nil
	}

	book := BookRequest{DocID: req.DocID, SlotDate: req.SlotDate, SlotTime: req.SlotTime}
	if !book.complete() {
		return "", errors.NewBadRequest("Payment Failed", nil)
	}

	doctor, err := s.doctor(ctx, book.DocID)
	if err != nil {
		return "", err
	}
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return "", err
	}
	if err := s.reserve(ctx, doctor.ID, book, "Slot was booked by someone else"); err != nil {
		return "", err
	}

	apt := model.NewAppointment(patient, doctor, book.SlotDate, book.SlotTime)
	apt.Payment = true
	if err := s.store(ctx, apt); err != nil {
		return "", err
	}

	s.metrics.AppointmentsBooked.WithLabelValues(flowPayFirst).Inc()
	s.events.Record(ctx, model.EventAppointmentBooked, bookedEvent(apt, flowPayFirst))
	s.events.Record(ctx, model.EventAppointmentPaid, map[string]interface{}{
		"appointmentId": apt.ID,
		"amount":        apt.Amount,
	})
	return "Appointment booked and payment successful", nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return s.list(ctx, model.AppointmentFilter{UserID: &patientID})
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	return s.list(ctx, model.AppointmentFilter{DocID: &doctorID})
}

func (s *Service) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	return s.list(ctx, model.AppointmentFilter{})
}

func (s *Service) list(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	apts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return apts, nil
}

func (s *Service) reserve(ctx context.Context, doctorID uuid.UUID, req BookRequest, takenMsg string) error {
	err := s.ledger.Book(ctx, doctorID, req.SlotDate, req.SlotTime)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, model.ErrSlotTaken):
		return errors.NewConflict(takenMsg, err)
	case stderrors.Is(err, slot.ErrContention):
		return errors.NewConflict("Doctor is busy right now. Please try again.", err)
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NewNotFound("Doctor not found", err)
	}
	return errors.NewInternal(err)
}

func (s *Service) store(ctx context.Context, apt *model.Appointment) error {
	if err := s.appointments.Create(ctx, apt); err != nil {
		if relErr := s.ledger.Release(ctx, apt.DocID, apt.SlotDate, apt.SlotTime); relErr != nil {
			s.logger.Error(relErr, "failed to release slot after failed booking",
				"doctor_id", apt.DocID.String(), "slot_date", apt.SlotDate, "slot_time", apt.SlotTime)
		}
		return errors.NewInternal(fmt.Errorf("failed to create appointment: %w", err))
	}
	return nil
}

func (s *Service) checkout(ctx context.Context, req payment.CheckoutRequest) (string, error) {
	sessionURL, err := s.payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", errors.NewDependency("Payment service is unavailable. Please try again.", err)
	}
	return sessionURL, nil
}

func (s *Service) origin(origin string) string {
	if origin == "" {
		return s.defaultOrigin
	}
	return strings.TrimRight(origin, "/")
}

func (s *Service) get(ctx context.Context, id, notFoundMsg string) (*model.Appointment, error) {
	aptID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.NewNotFound(notFoundMsg, err)
	}
	apt, err := s.appointments.Get(ctx, aptID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound(notFoundMsg, err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return apt, nil
}

func (s *Service) doctor(ctx context.Context, id string) (*model.Doctor, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.NewNotFound("Doctor not found", err)
	}
	doctor, err := s.doctors.Get(ctx, docID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound("Doctor not found", err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return doctor, nil
}

// bookableDoctor checks the availability flag only; isActive governs listing
// visibility, not booking.
func (s *Service) bookableDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doctor.Available {
		return nil, errors.NewConflict("Doctor Not Available", nil)
	}
	return doctor, nil
}

func (s *Service) patient(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	acc, err := s.accounts.Get(ctx, model.RolePatient, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound("User not found", err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return acc, nil
}

func bookedEvent(apt *model.Appointment, flow string) map[string]interface{} {
	return map[string]interface{}{
		"appointmentId": apt.ID,
		"docId":         apt.DocID,
		"userId":        apt.UserID,
		"slotDate":      apt.SlotDate,
		"slotTime":      apt.SlotTime,
		"amount":        apt.Amount,
		"payment":       apt.Payment,
		"flow":          flow,
	}
}
