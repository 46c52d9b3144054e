package doctor

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const msgNotFound = "Doctor not found"

type AddRequest struct {
	Name       string
	Email      string
	Password   string
	Speciality string
	Degree     string
	Experience string
	About      string
	Fees       float64
	Address    *model.Address
	Image      *storage.File
}

func (r AddRequest) complete() bool {
	return r.Name != "" && r.Email != "" && r.Password != "" && r.Speciality != "" &&
		r.Degree != "" && r.Experience != "" && r.About != "" && r.Fees > 0 && r.Address != nil
}

type Service interface {
	Add(ctx context.Context, req AddRequest) (*model.Doctor, error)
	// ListPublic returns active doctors without their email.
	ListPublic(ctx context.Context) ([]*model.Doctor, error)
	ListAll(ctx context.Context) ([]*model.Doctor, error)
	Profile(ctx context.Context, doctorID uuid.UUID) (*model.Doctor, error)
	UpdateProfile(ctx context.Context, doctorID uuid.UUID, update model.DoctorProfileUpdate) error
	// ToggleAvailability flips whether new bookings are accepted.
	ToggleAvailability(ctx context.Context, doctorID string) error
	// ToggleActive flips the account state and returns the message to show.
	ToggleActive(ctx context.Context, doctorID string) (string, error)
}

type service struct {
	accounts repository.AccountRepository
	doctors  repository.DoctorRepository
	hasher   security.PasswordHasher
	images   storage.ImageStore
	events   event.Recorder
	validate validator.Validator
	logger   *logger.Logger
}

func NewService(
	store *repository.Store,
	hasher security.PasswordHasher,
	images storage.ImageStore,
	events event.Recorder,
	log *logger.Logger,
) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		accounts: store.Accounts,
		doctors:  store.Doctors,
		hasher:   hasher,
		images:   images,
		events:   events,
		validate: validator.Default(),
		logger:   log.WithComponent("doctor"),
	}
}

func (s *service) Add(ctx context.Context, req AddRequest) (*model.Doctor, error) {
	req.Email = strings.TrimSpace(req.Email)
	if !req.complete() {
		return nil, errors.NewBadRequest("Missing Details", nil)
	}
	if !s.validate.IsEmail(req.Email) {
		return nil, errors.NewBadRequest("Please enter a valid email", nil)
	}
	if !security.IsStrongPassword(req.Password) {
		return nil, errors.NewBadRequest("Please enter a strong password", nil)
	}

	exists, err := s.accounts.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if exists {
		return nil, errors.NewConflict("Email already exists", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	acc := model.NewAccount(model.RoleDoctor, req.Name, req.Email, hash)
	acc.Address = *req.Address
	if req.Image != nil {
		url, err := s.images.Upload(ctx, req.Image.Name, req.Image.Body)
		if err != nil {
			return nil, errors.NewDependency("Image upload failed", err)
		}
		acc.Image = url
	}

	doc := model.NewDoctor(acc)
	doc.Speciality = req.Speciality
	doc.Degree = req.Degree
	doc.Experience = req.Experience
	doc.About = req.About
	doc.Fees = req.Fees

	if err := s.doctors.Create(ctx, doc); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflict("Email already exists", err)
		}
		return nil, errors.NewInternal(err)
	}

	s.events.Record(ctx, model.EventDoctorCreated, map[string]interface{}{
		"doctorId":   doc.ID,
		"speciality": doc.Speciality,
	})
	s.logger.Info("doctor added", "doctor_id", doc.ID.String())
	return doc, nil
}

func (s *service) ListPublic(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx, model.DoctorFilter{ActiveOnly: true})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	out := make([]*model.Doctor, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.Public())
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx, model.DoctorFilter{})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return doctors, nil
}

func (s *service) Profile(ctx context.Context, doctorID uuid.UUID) (*model.Doctor, error) {
	doc, err := s.doctors.Get(ctx, doctorID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound(msgNotFound, err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return doc, nil
}

func (s *service) UpdateProfile(ctx context.Context, doctorID uuid.UUID, update model.DoctorProfileUpdate) error {
	if update.Fees != nil && *update.Fees < 0 {
		return errors.NewBadRequest("Fees must not be negative", nil)
	}
	if err := s.doctors.UpdateProfile(ctx, doctorID, update); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFound(msgNotFound, err)
		}
		return errors.NewInternal(err)
	}
	return nil
}

func (s *service) ToggleAvailability(ctx context.Context, doctorID string) error {
	doc, err := s.lookup(ctx, doctorID)
	if err != nil {
		return err
	}
	if err := s.doctors.SetAvailability(ctx, doc.ID, !doc.Available); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (s *service) ToggleActive(ctx context.Context, doctorID string) (string, error) {
	doc, err := s.lookup(ctx, doctorID)
	if err != nil {
		return "", err
	}
	if err := s.doctors.SetActive(ctx, doc.ID, !doc.IsActive); err != nil {
		return "", errors.NewInternal(err)
	}
	s.logger.Info("doctor active state changed", "doctor_id", doc.ID.String(), "active", !doc.IsActive)
	if doc.IsActive {
		return "Doctor account deactivated", nil
	}
	return "Doctor account activated", nil
}

func (s *service) lookup(ctx context.Context, doctorID string) (*model.Doctor, error) {
	if doctorID == "" {
		return nil, errors.NewBadRequest("Doctor ID is required", nil)
	}
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, errors.NewNotFound(msgNotFound, err)
	}
	return s.Profile(ctx, id)
}
