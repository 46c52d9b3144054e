package account

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type stubImages struct{}

func (stubImages) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://img.test/" + name, nil
}

func newService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, security.NewBcryptHasher(bcrypt.MinCost), stubImages{}, nil), store
}

func message(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Message
}

func TestUpdateProfile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	patient := model.NewAccount(model.RolePatient, "Pat", "pat@clinic.io", "hash")
	require.NoError(t, store.Accounts.Create(ctx, patient))

	err := svc.UpdateProfile(ctx, patient.ID, ProfileRequest{Name: "Pat"})
	assert.Equal(t, "Data Missing", message(t, err))

	err = svc.UpdateProfile(ctx, patient.ID, ProfileRequest{
		Name:    "Patricia",
		Phone:   "0501112233",
		Address: model.Address{Line1: "Main 1"},
		DOB:     "1990-01-01",
		Gender:  "Female",
		Image:   &storage.File{Name: "me.png", Body: strings.NewReader("x")},
	})
	require.NoError(t, err)

	got, err := svc.Profile(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patricia", got.Name)
	assert.Equal(t, "Main 1", got.Address.Line1)
	assert.Equal(t, "https://img.test/me.png", got.Image)

	_, err = svc.Profile(ctx, uuid.New())
	assert.Equal(t, "User not found", message(t, err))
}

func TestCreateStaff(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, StaffRequest{Name: "Root", Email: "root@clinic.io", Password: "rootpass1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, err = svc.CreateAdmin(ctx, StaffRequest{Name: "Root", Email: "root@clinic.io", Password: "rootpass1"})
	assert.Equal(t, "Admin already exists", message(t, err))

	mgr, err := svc.CreateManager(ctx, StaffRequest{Name: "Mo", Email: "mo@clinic.io", Password: "managerpw"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPhone, mgr.Phone)

	_, err = svc.CreateManager(ctx, StaffRequest{Name: "Mo", Email: "root@clinic.io", Password: "managerpw"})
	assert.Equal(t, "Email already exists", message(t, err))

	_, err = svc.CreateManager(ctx, StaffRequest{Name: "Mo", Email: "x@clinic.io"})
	assert.Equal(t, "Missing Details", message(t, err))

	stored, err := store.Accounts.GetByEmail(ctx, model.RoleManager, "mo@clinic.io")
	require.NoError(t, err)
	assert.NotEqual(t, "managerpw", stored.PasswordHash)
}

func TestManagerListingAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mgr, err := svc.CreateManager(ctx, StaffRequest{Name: "Mo", Email: "mo@clinic.io", Password: "managerpw"})
	require.NoError(t, err)

	managers, err := svc.ListManagers(ctx)
	require.NoError(t, err)
	require.Len(t, managers, 1)

	require.NoError(t, svc.DeleteManager(ctx, mgr.ID.String()))
	managers, err = svc.ListManagers(ctx)
	require.NoError(t, err)
	assert.Empty(t, managers)

	err = svc.DeleteManager(ctx, mgr.ID.String())
	assert.Equal(t, "Manager not found", message(t, err))
}
