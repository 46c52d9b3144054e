package dashboard

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

const recentPendingLimit = 5

type DoctorData struct {
	Earnings           float64              `json:"earnings"`
	Appointments       int                  `json:"appointments"`
	Patients           int                  `json:"patients"`
	LatestAppointments []*model.Appointment `json:"latestAppointments"`
}

type ClinicData struct {
	Doctors            int                  `json:"doctors"`
	Appointments       int                  `json:"appointments"`
	Patients           int                  `json:"patients"`
	LatestAppointments []*model.Appointment `json:"latestAppointments"`
}

type AdminData struct {
	ClinicData
	Managers           int                          `json:"managers"`
	PendingUsers       int                          `json:"pendingUsers"`
	ApprovedUsers      int                          `json:"approvedUsers"`
	RejectedUsers      int                          `json:"rejectedUsers"`
	RecentPendingUsers []*model.PendingRegistration `json:"recentPendingUsers"`
}

type Service struct {
	store *repository.Store
}

func NewService(store *repository.Store) *Service {
	return &Service{store: store}
}

// Doctor counts earnings from appointments that were completed or paid.
func (s *Service) Doctor(ctx context.Context, doctorID uuid.UUID) (*DoctorData, error) {
	apts, err := s.store.Appointments.List(ctx, model.AppointmentFilter{DocID: &doctorID, NewestFirst: true})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	data := &DoctorData{Appointments: len(apts), LatestAppointments: apts}
	patients := make(map[uuid.UUID]struct{})
	for _, a := range apts {
		if a.IsCompleted || a.Payment {
			data.Earnings += a.Amount
		}
		patients[a.UserID] = struct{}{}
	}
	data.Patients = len(patients)
	return data, nil
}

func (s *Service) Clinic(ctx context.Context) (*ClinicData, error) {
	doctors, err := s.store.Doctors.Count(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	patients, err := s.store.Accounts.Count(ctx, model.RolePatient)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	apts, err := s.store.Appointments.List(ctx, model.AppointmentFilter{NewestFirst: true})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ClinicData{
		Doctors:            doctors,
		Appointments:       len(apts),
		Patients:           patients,
		LatestAppointments: apts,
	}, nil
}

func (s *Service) Admin(ctx context.Context) (*AdminData, error) {
	clinic, err := s.Clinic(ctx)
	if err != nil {
		return nil, err
	}
	data := &AdminData{ClinicData: *clinic, ApprovedUsers: clinic.Patients}

	if data.Managers, err = s.store.Accounts.Count(ctx, model.RoleManager); err != nil {
		return nil, errors.NewInternal(err)
	}
	if data.PendingUsers, err = s.store.Registrations.CountByStatus(ctx, model.RegistrationPending); err != nil {
		return nil, errors.NewInternal(err)
	}
	if data.RejectedUsers, err = s.store.Registrations.CountByStatus(ctx, model.RegistrationRejected); err != nil {
		return nil, errors.NewInternal(err)
	}
	if data.RecentPendingUsers, err = s.store.Registrations.ListByStatus(ctx, model.RegistrationPending, recentPendingLimit); err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}
