package doctor

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type stubImages struct{}

func (stubImages) Upload(context.Context, string, io.Reader) (string, error) {
	return "https://img.test/doc.png", nil
}

func newService(t *testing.T) (Service, *repository.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewService(store, security.NewBcryptHasher(bcrypt.MinCost), stubImages{}, event.Nop{}, nil)
	return svc, store
}

func addRequest(email string) AddRequest {
	return AddRequest{
		Name:       "Dr. Grey",
		Email:      email,
		Password:   "doctorpass",
		Speciality: "General physician",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Family medicine",
		Fees:       50,
		Address:    &model.Address{Line1: "Clinic st. 1"},
	}
}

func message(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Message
}

func TestAddDoctor(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	doc, err := svc.Add(ctx, addRequest("grey@clinic.io"))
	require.NoError(t, err)
	assert.True(t, doc.Available)
	assert.True(t, doc.IsActive)
	assert.Empty(t, doc.SlotsBooked)

	stored, err := store.Doctors.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.Fees)
	assert.Equal(t, "Clinic st. 1", stored.Address.Line1)

	_, err = svc.Add(ctx, addRequest("grey@clinic.io"))
	assert.Equal(t, "Email already exists", message(t, err))

	req := addRequest("other@clinic.io")
	req.Degree = ""
	_, err = svc.Add(ctx, req)
	assert.Equal(t, "Missing Details", message(t, err))

	req = addRequest("nope")
	_, err = svc.Add(ctx, req)
	assert.Equal(t, "Please enter a valid email", message(t, err))

	req = addRequest("other@clinic.io")
	req.Password = "123"
	_, err = svc.Add(ctx, req)
	assert.Equal(t, "Please enter a strong password", message(t, err))
}

func TestPublicListHidesInactiveAndEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	active, err := svc.Add(ctx, addRequest("a@clinic.io"))
	require.NoError(t, err)
	inactive, err := svc.Add(ctx, addRequest("b@clinic.io"))
	require.NoError(t, err)

	msg, err := svc.ToggleActive(ctx, inactive.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Doctor account deactivated", msg)

	public, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, active.ID, public[0].ID)
	assert.Empty(t, public[0].Email)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	msg, err = svc.ToggleActive(ctx, inactive.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Doctor account activated", msg)
}

func TestToggles(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	doc, err := svc.Add(ctx, addRequest("a@clinic.io"))
	require.NoError(t, err)

	require.NoError(t, svc.ToggleAvailability(ctx, doc.ID.String()))
	got, err := svc.Profile(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	_, err = svc.ToggleActive(ctx, "")
	assert.Equal(t, "Doctor ID is required", message(t, err))
	_, err = svc.ToggleActive(ctx, uuid.NewString())
	assert.Equal(t, "Doctor not found", message(t, err))
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	doc, err := svc.Add(ctx, addRequest("a@clinic.io"))
	require.NoError(t, err)

	fees, about, available := 75.0, "Updated", false
	require.NoError(t, svc.UpdateProfile(ctx, doc.ID, model.DoctorProfileUpdate{
		Fees: &fees, About: &about, Available: &available,
	}))

	got, err := svc.Profile(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Fees)
	assert.Equal(t, "Updated", got.About)
	assert.False(t, got.Available)
	assert.Equal(t, "Clinic st. 1", got.Address.Line1)

	err = svc.UpdateProfile(ctx, uuid.New(), model.DoctorProfileUpdate{About: &about})
	assert.Equal(t, "Doctor not found", message(t, err))
}
