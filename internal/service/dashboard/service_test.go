package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
)

func TestDashboards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	doctor := model.NewDoctor(model.NewAccount(model.RoleDoctor, "Dr. Grey", "grey@clinic.io", "hash"))
	doctor.Fees = 40
	require.NoError(t, store.Doctors.Create(ctx, doctor))

	alice := model.NewAccount(model.RolePatient, "Alice", "alice@clinic.io", "hash")
	bob := model.NewAccount(model.RolePatient, "Bob", "bob@clinic.io", "hash")
	require.NoError(t, store.Accounts.Create(ctx, alice))
	require.NoError(t, store.Accounts.Create(ctx, bob))
	require.NoError(t, store.Accounts.Create(ctx, model.NewAccount(model.RoleManager, "Mo", "mo@clinic.io", "hash")))

	completed := model.NewAppointment(alice, doctor, "1_1_2025", "9:00")
	paid := model.NewAppointment(alice, doctor, "2_1_2025", "9:00")
	open := model.NewAppointment(bob, doctor, "3_1_2025", "9:00")
	for _, a := range []*model.Appointment{completed, paid, open} {
		require.NoError(t, store.Appointments.Create(ctx, a))
	}
	_, err := store.Appointments.Complete(ctx, completed.ID)
	require.NoError(t, err)
	require.NoError(t, store.Appointments.MarkPaid(ctx, paid.ID))

	for i, fin := range []string{"F1", "F2", "F3"} {
		reg := &model.PendingRegistration{Name: "P", Email: fin + "@clinic.io", FIN: fin}
		require.NoError(t, store.Registrations.Create(ctx, reg))
		if i == 0 {
			require.NoError(t, store.Registrations.Reject(ctx, reg.ID))
		}
	}

	svc := NewService(store)

	doc, err := svc.Doctor(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, doc.Earnings)
	assert.Equal(t, 3, doc.Appointments)
	assert.Equal(t, 2, doc.Patients)
	require.Len(t, doc.LatestAppointments, 3)
	assert.Equal(t, open.ID, doc.LatestAppointments[0].ID)

	clinic, err := svc.Clinic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, clinic.Doctors)
	assert.Equal(t, 2, clinic.Patients)
	assert.Equal(t, 3, clinic.Appointments)

	admin, err := svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.Managers)
	assert.Equal(t, 2, admin.PendingUsers)
	assert.Equal(t, 1, admin.RejectedUsers)
	assert.Equal(t, 2, admin.ApprovedUsers)
	assert.Len(t, admin.RecentPendingUsers, 2)
}
