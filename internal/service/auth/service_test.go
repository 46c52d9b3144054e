package auth

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

var legacy = config.LegacyConfig{
	AdminEmail:      "admin@clinic.io",
	AdminPassword:   "admin-secret",
	ManagerEmail:    "manager@clinic.io",
	ManagerPassword: "manager-secret",
}

type fixture struct {
	store  *repository.Store
	svc    *Service
	tokens auth.JWTService
	hasher security.PasswordHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewJWTService("test-secret", time.Hour)
	return &fixture{
		store:  store,
		svc:    NewService(store, hasher, tokens, legacy, metrics.NewNop(), nil),
		tokens: tokens,
		hasher: hasher,
	}
}

func (f *fixture) account(t *testing.T, role model.Role, email, password string) *model.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	acc := model.NewAccount(role, "Someone", email, hash)
	if role == model.RoleDoctor {
		doc := model.NewDoctor(acc)
		require.NoError(t, f.store.Doctors.Create(context.Background(), doc))
		return &doc.Account
	}
	require.NoError(t, f.store.Accounts.Create(context.Background(), acc))
	return acc
}

func message(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Message
}

func TestUnifiedLoginPrecedenceAndToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient := f.account(t, model.RolePatient, "pat@clinic.io", "password123")
	f.account(t, model.RoleDoctor, "doc@clinic.io", "password123")

	res, err := f.svc.UnifiedLogin(ctx, "pat@clinic.io", "password123")
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, res.Role)

	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, p.AccountID)
	assert.False(t, p.Legacy)

	res, err = f.svc.UnifiedLogin(ctx, "doc@clinic.io", "password123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, res.Role)

	_, err = f.svc.UnifiedLogin(ctx, "doc@clinic.io", "wrong")
	assert.Equal(t, "Invalid credentials", message(t, err))

	_, err = f.svc.UnifiedLogin(ctx, "nobody@clinic.io", "password123")
	assert.Equal(t, "User does not exist", message(t, err))
}

func TestLoginDisclosesPendingRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Registrations.Create(ctx, &model.PendingRegistration{
		Name: "Pat", Email: "pending@clinic.io", FIN: "F1234567", PasswordHash: "x",
		Status: model.RegistrationPending,
	}))

	for _, login := range []func() error{
		func() error { _, err := f.svc.Login(ctx, model.RolePatient, "pending@clinic.io", "pw"); return err },
		func() error { _, err := f.svc.UnifiedLogin(ctx, "pending@clinic.io", "pw"); return err },
	} {
		err := login()
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, "Your account is pending approval", appErr.Message)
		assert.Equal(t, true, appErr.Fields["pendingStatus"])
		assert.Equal(t, "F1234567", appErr.Fields["fin"])
	}
}

func TestDoctorLoginDoesNotRevealMissingAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), model.RoleDoctor, "ghost@clinic.io", "pw")
	assert.Equal(t, "Invalid credentials", message(t, err))
}

func TestLegacyAdminLoginMigratesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, model.RoleAdmin, legacy.AdminEmail, legacy.AdminPassword)
	require.NoError(t, err)
	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.False(t, p.Legacy)

	count, err := f.store.Accounts.Count(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the second login authenticates against the stored account
	res2, err := f.svc.UnifiedLogin(ctx, legacy.AdminEmail, legacy.AdminPassword)
	require.NoError(t, err)
	p2, err := f.tokens.Verify(res2.Token)
	require.NoError(t, err)
	assert.Equal(t, p.AccountID, p2.AccountID)

	count, err = f.store.Accounts.Count(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLegacySecretRejectedOnceAccountExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, model.RoleAdmin, legacy.AdminEmail, "a-real-password")

	_, err := f.svc.Login(ctx, model.RoleAdmin, legacy.AdminEmail, legacy.AdminPassword)
	assert.Equal(t, "Invalid credentials", message(t, err))

	_, err = f.svc.UnifiedLogin(ctx, legacy.AdminEmail, legacy.AdminPassword)
	assert.Equal(t, "Invalid credentials", message(t, err))
}

func TestLegacyManagerUnifiedLogin(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.UnifiedLogin(context.Background(), legacy.ManagerEmail, legacy.ManagerPassword)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, res.Role)
}

type failingCreate struct {
	repository.AccountRepository
}

func (failingCreate) Create(context.Context, *model.Account) error {
	return stderrors.New("insert failed")
}

func TestLegacyTokenWhenMigrationFails(t *testing.T) {
	f := newFixture(t)
	f.svc.accounts = failingCreate{f.store.Accounts}

	res, err := f.svc.Login(context.Background(), model.RoleManager, legacy.ManagerEmail, legacy.ManagerPassword)
	require.NoError(t, err)
	p, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.True(t, p.Legacy)
	assert.Equal(t, model.RoleManager, p.Role)
	assert.Equal(t, legacy.ManagerEmail, p.Email)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, model.RolePatient, "pat@clinic.io", "password123")
	p := model.Principal{AccountID: acc.ID, Role: model.RolePatient}

	_, err := f.svc.ChangePassword(ctx, p, "", "newpassword")
	assert.Equal(t, "Missing current or new password", message(t, err))

	_, err = f.svc.ChangePassword(ctx, p, "password123", "short")
	assert.Equal(t, "New password must be at least 8 characters long", message(t, err))

	_, err = f.svc.ChangePassword(ctx, p, "wrong-password", "newpassword")
	assert.Equal(t, "Current password is incorrect", message(t, err))

	msg, err := f.svc.ChangePassword(ctx, p, "password123", "newpassword")
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully", msg)

	_, err = f.svc.Login(ctx, model.RolePatient, "pat@clinic.io", "newpassword")
	assert.NoError(t, err)
}

func TestLegacyAdminChangePasswordCreatesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := model.Principal{Role: model.RoleAdmin, Email: legacy.AdminEmail, Legacy: true}

	_, err := f.svc.ChangePassword(ctx, p, "not-the-secret", "brand-new-pass")
	assert.Equal(t, "Current password is incorrect", message(t, err))

	msg, err := f.svc.ChangePassword(ctx, p, legacy.AdminPassword, "brand-new-pass")
	require.NoError(t, err)
	assert.Contains(t, msg, "Password updated successfully")

	_, err = f.svc.Login(ctx, model.RoleAdmin, legacy.AdminEmail, "brand-new-pass")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, model.RoleAdmin, legacy.AdminEmail, legacy.AdminPassword)
	assert.Equal(t, "Invalid credentials", message(t, err))
}

func TestLegacyManagerCannotChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := model.Principal{Role: model.RoleManager, Email: legacy.ManagerEmail, Legacy: true}

	_, err := f.svc.ChangePassword(ctx, p, legacy.ManagerPassword, "brand-new-pass")
	assert.Equal(t, "Legacy manager accounts cannot change passwords through this interface. Please contact system administrator.", message(t, err))

	_, err = f.svc.ChangePassword(ctx, p, "nope-nope", "brand-new-pass")
	assert.Equal(t, "Current password is incorrect", message(t, err))

	count, err := f.store.Accounts.Count(ctx, model.RoleManager)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBootstrapSeedsMissingAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := NewBootstrapper(f.svc)

	seeded, err := b.Seed(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Role{model.RoleAdmin, model.RoleManager}, seeded)

	seeded, err = b.Seed(ctx)
	require.NoError(t, err)
	assert.Empty(t, seeded)

	_, err = f.svc.Login(ctx, model.RoleManager, legacy.ManagerEmail, legacy.ManagerPassword)
	assert.NoError(t, err)
}
