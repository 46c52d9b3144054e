package registration

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	MsgSubmitted = "Registration submitted for approval. You will be notified when your account is approved."

	msgFINRegistered = "This National ID (FIN) is already registered. Please use the status checker to verify your account status."
	msgFINPending    = "A registration with this National ID (FIN) is already pending approval. Please use the status checker to verify your account status."
	msgNotPending    = "Pending user not found"
	msgProcessed     = "Registration has already been processed"
)

var statusMessages = map[model.RegistrationStatus]string{
	model.RegistrationApproved: "Your account has been approved. You can login with your email and password.",
	model.RegistrationPending:  "Your account is pending approval. You will be notified when your account is approved.",
	model.RegistrationRejected: "Your account registration was rejected. Please contact support for more information.",
}

type RegisterRequest struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	FIN        string
	FrontImage *storage.File
	BackImage  *storage.File
}

// Status is the outcome of a FIN lookup.
type Status struct {
	Status  model.RegistrationStatus
	Message string
}

type Service struct {
	accounts      repository.AccountRepository
	registrations repository.PendingRegistrationRepository
	hasher        security.PasswordHasher
	images        storage.ImageStore
	notifier      notification.Service
	events        event.Recorder
	validate      validator.Validator
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewService(
	store *repository.Store,
	hasher security.PasswordHasher,
	images storage.ImageStore,
	notifier notification.Service,
	events event.Recorder,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts:      store.Accounts,
		registrations: store.Registrations,
		hasher:        hasher,
		images:        images,
		notifier:      notifier,
		events:        events,
		validate:      validator.Default(),
		metrics:       m,
		logger:        log.WithComponent("registration"),
	}
}

// Register stores a self-service sign-up for admin approval. Uniqueness
// checks run before the ID images are uploaded.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.FIN = strings.TrimSpace(req.FIN)

	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" || req.FIN == "" {
		return errors.NewBadRequest("Missing Detail", nil)
	}
	if req.FrontImage == nil || req.BackImage == nil {
		return errors.NewBadRequest("ID images are required", nil)
	}
	if !s.validate.IsEmail(req.Email) {
		return errors.NewBadRequest("Please enter a valid email", nil)
	}
	if !security.IsStrongPassword(req.Password) {
		return errors.NewBadRequest("Please enter a strong password", nil)
	}
	if err := s.checkUnique(ctx, req.Email, req.FIN); err != nil {
		s.metrics.Registrations.WithLabelValues("rejected_duplicate").Inc()
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return errors.NewInternal(err)
	}
	front, err := s.upload(ctx, req.FrontImage)
	if err != nil {
		return err
	}
	back, err := s.upload(ctx, req.BackImage)
	if err != nil {
		return err
	}

	reg := &model.PendingRegistration{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Image:        model.DefaultImage,
		Phone:        req.Phone,
		FIN:          req.FIN,
		FrontImage:   front,
		BackImage:    back,
		Gender:       model.DefaultGender,
		DOB:          model.DefaultDOB,
		Status:       model.RegistrationPending,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return errors.NewConflict("Registration already pending approval", err).
				With("pendingStatus", true).With("fin", req.FIN)
		}
		return errors.NewInternal(err)
	}

	s.metrics.Registrations.WithLabelValues(string(model.RegistrationPending)).Inc()
	s.events.Record(ctx, model.EventRegistrationSubmitted, map[string]interface{}{
		"registrationId": reg.ID,
		"email":          reg.Email,
	})
	s.logger.Info("registration submitted", "registration_id", reg.ID.String())
	return nil
}

func (s *Service) checkUnique(ctx context.Context, email, fin string) error {
	exists, err := s.accounts.EmailExists(ctx, email)
	if err != nil {
		return errors.NewInternal(err)
	}
	if exists {
		return errors.NewConflict("Email already registered", nil)
	}

	pending, err := s.registrations.GetByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewInternal(err)
	}
	if pending != nil {
		return errors.NewConflict("Registration already pending approval", nil).
			With("pendingStatus", true).With("fin", pending.FIN)
	}

	if _, err := s.accounts.GetByFIN(ctx, fin); err == nil {
		return errors.NewConflict(msgFINRegistered, nil).With("finExists", true).With("fin", fin)
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewInternal(err)
	}

	pending, err = s.registrations.GetByFIN(ctx, fin)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewInternal(err)
	}
	if pending != nil {
		return errors.NewConflict(msgFINPending, nil).With("pendingStatus", true).With("fin", pending.FIN)
	}
	return nil
}

func (s *Service) upload(ctx context.Context, file *storage.File) (string, error) {
	url, err := s.images.Upload(ctx, file.Name, file.Body)
	if err != nil {
		return "", errors.NewDependency("Image upload failed", err)
	}
	return url, nil
}

// CheckStatus reports where the sign-up carrying fin stands. An approved
// patient account wins over the registration record.
func (s *Service) CheckStatus(ctx context.Context, fin string) (*Status, error) {
	fin = strings.TrimSpace(fin)
	if fin == "" {
		return nil, errors.NewBadRequest("FIN number is required", nil)
	}

	if _, err := s.accounts.GetByFIN(ctx, fin); err == nil {
		return s.status(model.RegistrationApproved), nil
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewInternal(err)
	}

	reg, err := s.registrations.GetByFIN(ctx, fin)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound("No account found with this FIN number. Please register first.", err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s.status(reg.Status), nil
}

func (s *Service) status(st model.RegistrationStatus) *Status {
	msg, ok := statusMessages[st]
	if !ok {
		msg = "Your account status is being processed."
	}
	return &Status{Status: st, Message: msg}
}

// Approve turns a pending registration into a patient account and emails the
// applicant.
func (s *Service) Approve(ctx context.Context, registrationID string) error {
	reg, err := s.pending(ctx, registrationID)
	if err != nil {
		return err
	}

	if err := s.registrations.Approve(ctx, reg.ID, reg.ToAccount()); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrNotFound):
			return errors.NewConflict(msgProcessed, err)
		case stderrors.Is(err, repository.ErrDuplicate):
			return errors.NewConflict("Email already registered", err)
		}
		return errors.NewInternal(err)
	}

	s.metrics.Registrations.WithLabelValues(string(model.RegistrationApproved)).Inc()
	s.notifier.RegistrationApproved(ctx, reg.Email, reg.Name)
	s.events.Record(ctx, model.EventRegistrationApproved, map[string]interface{}{
		"registrationId": reg.ID,
		"email":          reg.Email,
	})
	return nil
}

func (s *Service) Reject(ctx context.Context, registrationID string) error {
	reg, err := s.pending(ctx, registrationID)
	if err != nil {
		return err
	}

	if err := s.registrations.Reject(ctx, reg.ID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewConflict(msgProcessed, err)
		}
		return errors.NewInternal(err)
	}

	s.metrics.Registrations.WithLabelValues(string(model.RegistrationRejected)).Inc()
	s.notifier.RegistrationRejected(ctx, reg.Email, reg.Name)
	s.events.Record(ctx, model.EventRegistrationRejected, map[string]interface{}{
		"registrationId": reg.ID,
		"email":          reg.Email,
	})
	return nil
}

func (s *Service) pending(ctx context.Context, registrationID string) (*model.PendingRegistration, error) {
	id, err := uuid.Parse(registrationID)
	if err != nil {
		return nil, errors.NewNotFound(msgNotPending, err)
	}
	reg, err := s.registrations.Get(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound(msgNotPending, err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if reg.Status != model.RegistrationPending {
		return nil, errors.NewConflict(msgProcessed, nil)
	}
	return reg, nil
}

func (s *Service) ListPending(ctx context.Context) ([]*model.PendingRegistration, error) {
	return s.list(ctx, model.RegistrationPending)
}

func (s *Service) ListRejected(ctx context.Context) ([]*model.PendingRegistration, error) {
	return s.list(ctx, model.RegistrationRejected)
}

func (s *Service) list(ctx context.Context, status model.RegistrationStatus) ([]*model.PendingRegistration, error) {
	regs, err := s.registrations.ListByStatus(ctx, status, 0)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return regs, nil
}

// ListApproved returns every patient account, including ones created before
// approvals existed.
func (s *Service) ListApproved(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accounts.List(ctx, model.RolePatient)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return accounts, nil
}
