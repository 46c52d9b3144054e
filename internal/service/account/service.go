package account

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// ProfileRequest is a patient profile edit. Image is optional.
type ProfileRequest struct {
	Name    string
	Phone   string
	Address model.Address
	DOB     string
	Gender  string
	Image   *storage.File
}

// StaffRequest creates an admin or manager account.
type StaffRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  *model.Address
}

type Service struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	images   storage.ImageStore
	validate validator.Validator
	logger   *logger.Logger
}

func NewService(store *repository.Store, hasher security.PasswordHasher, images storage.ImageStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts: store.Accounts,
		hasher:   hasher,
		images:   images,
		validate: validator.Default(),
		logger:   log.WithComponent("account"),
	}
}

func (s *Service) Profile(ctx context.Context, patientID uuid.UUID) (*model.Account, error) {
	acc, err := s.accounts.Get(ctx, model.RolePatient, patientID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound("User not found", err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return acc, nil
}

// UpdateProfile replaces the editable fields. The new image, when given, is
// uploaded before anything is written.
func (s *Service) UpdateProfile(ctx context.Context, patientID uuid.UUID, req ProfileRequest) error {
	if req.Name == "" || req.Phone == "" || req.DOB == "" || req.Gender == "" {
		return errors.NewBadRequest("Data Missing", nil)
	}
	if _, err := s.Profile(ctx, patientID); err != nil {
		return err
	}

	update := model.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		DOB:     req.DOB,
		Gender:  req.Gender,
	}
	if req.Image != nil {
		url, err := s.images.Upload(ctx, req.Image.Name, req.Image.Body)
		if err != nil {
			return errors.NewDependency("Image upload failed", err)
		}
		update.Image = url
	}

	if err := s.accounts.UpdateProfile(ctx, patientID, update); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (s *Service) CreateAdmin(ctx context.Context, req StaffRequest) (*model.Account, error) {
	if err := s.checkStaff(req); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByEmail(ctx, model.RoleAdmin, req.Email); err == nil {
		return nil, errors.NewConflict("Admin already exists", nil)
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewInternal(err)
	}
	return s.createStaff(ctx, model.RoleAdmin, req)
}

func (s *Service) CreateManager(ctx context.Context, req StaffRequest) (*model.Account, error) {
	if err := s.checkStaff(req); err != nil {
		return nil, err
	}
	return s.createStaff(ctx, model.RoleManager, req)
}

func (s *Service) checkStaff(req StaffRequest) error {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return errors.NewBadRequest("Missing Details", nil)
	}
	if !s.validate.IsEmail(req.Email) {
		return errors.NewBadRequest("Please enter a valid email", nil)
	}
	if !security.IsStrongPassword(req.Password) {
		return errors.NewBadRequest("Please enter a strong password", nil)
	}
	return nil
}

// createStaff enforces email uniqueness across every account kind.
func (s *Service) createStaff(ctx context.Context, role model.Role, req StaffRequest) (*model.Account, error) {
	email := strings.TrimSpace(req.Email)
	exists, err := s.accounts.EmailExists(ctx, email)
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
	acc := model.NewAccount(role, req.Name, email, hash)
	if req.Phone != "" {
		acc.Phone = req.Phone
	}
	if req.Address != nil {
		acc.Address = *req.Address
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflict("Email already exists", err)
		}
		return nil, errors.NewInternal(err)
	}
	s.logger.Info("staff account created", "role", string(role), "account_id", acc.ID.String())
	return acc, nil
}

func (s *Service) ListManagers(ctx context.Context) ([]*model.Account, error) {
	managers, err := s.accounts.List(ctx, model.RoleManager)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return managers, nil
}

func (s *Service) DeleteManager(ctx context.Context, managerID string) error {
	if managerID == "" {
		return errors.NewBadRequest("Manager ID is required", nil)
	}
	id, err := uuid.Parse(managerID)
	if err != nil {
		return errors.NewNotFound("Manager not found", err)
	}
	if err := s.accounts.Delete(ctx, model.RoleManager, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFound("Manager not found", err)
		}
		return errors.NewInternal(err)
	}
	s.logger.Info("manager deleted", "account_id", id.String())
	return nil
}
