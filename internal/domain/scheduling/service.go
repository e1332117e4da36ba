package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/access"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/metrics"
)

var (
	ErrDoctorInactive    = apperr.ErrDoctorInactive
	ErrOutsideSchedule   = apperr.ErrOutsideSchedule
	ErrFullyBooked       = apperr.ErrFullyBooked
	ErrSlotAlreadyBooked = apperr.ErrSlotAlreadyBooked
	ErrInvalidTransition = apperr.ErrInvalidTransition
)

const (
	DefaultMaxPatients = 20
	MaxMaxPatients     = 500
)

// WindowInput is the body of a schedule create or update. On update, empty
// fields keep their current value.
type WindowInput struct {
	DoctorID    *uuid.UUID `json:"doctor_id"`
	DayOfWeek   string     `json:"day_of_week"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	MaxPatients *int       `json:"max_patients"`
}

// BookingInput is the body of an appointment create. PatientID is ignored
// for patient callers.
type BookingInput struct {
	PatientID *uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	Date      string     `json:"appointment_date"`
	Time      string     `json:"appointment_time"`
}

// AppointmentChange is the body of an appointment update. Only staff and
// admin may move the slot; for other roles those fields are ignored.
type AppointmentChange struct {
	Status   *Status    `json:"status"`
	DoctorID *uuid.UUID `json:"doctor_id"`
	Date     *string    `json:"appointment_date"`
	Time     *string    `json:"appointment_time"`
}

type Service struct {
	windows      WindowRepository
	appointments AppointmentRepository
	directory    identity.Directory
	validator    *SlotValidator
	tx           db.Transactor
	logger       zerolog.Logger
}

func NewService(windows WindowRepository, appts AppointmentRepository, dir identity.Directory, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		windows:      windows,
		appointments: appts,
		directory:    dir,
		validator:    NewSlotValidator(dir, windows, appts),
		tx:           tx,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

// -- Availability --

// ListWindows returns a doctor's weekly windows. Doctors default to, and are
// limited to, their own schedule.
func (s *Service) ListWindows(ctx context.Context, scope access.Scope, doctorID *uuid.UUID) ([]*AvailabilityWindow, error) {
	switch scope.Principal.Role {
	case auth.RoleDoctor:
		if doctorID == nil {
			doctorID = scope.DoctorID
		}
		if !scope.CanManageDoctor(*doctorID) {
			return nil, apperr.Forbidden("doctors can only view their own schedule")
		}
	case auth.RoleAdmin, auth.RoleStaff:
		if doctorID == nil {
			return nil, apperr.Validation("doctor_id is required")
		}
	default:
		return nil, apperr.ErrForbidden
	}
	if _, err := s.directory.DoctorByID(ctx, *doctorID); err != nil {
		return nil, err
	}
	return s.windows.ListByDoctor(ctx, *doctorID)
}

func (s *Service) CreateWindow(ctx context.Context, scope access.Scope, in WindowInput) (*AvailabilityWindow, error) {
	doctorID := in.DoctorID
	if doctorID == nil && scope.Principal.Role == auth.RoleDoctor {
		doctorID = scope.DoctorID
	}
	if doctorID == nil || *doctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if !scope.CanManageDoctor(*doctorID) {
		return nil, apperr.Forbidden("you cannot manage this doctor's schedule")
	}
	if _, err := s.directory.DoctorByID(ctx, *doctorID); err != nil {
		return nil, err
	}

	w := &AvailabilityWindow{DoctorID: *doctorID, MaxPatients: DefaultMaxPatients}
	if err := applyWindowInput(w, in, true); err != nil {
		return nil, err
	}
	if err := s.windows.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) UpdateWindow(ctx context.Context, scope access.Scope, id uuid.UUID, in WindowInput) (*AvailabilityWindow, error) {
	w, err := s.windows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanManageDoctor(w.DoctorID) {
		return nil, apperr.Forbidden("you cannot manage this doctor's schedule")
	}
	if err := applyWindowInput(w, in, false); err != nil {
		return nil, err
	}
	if err := s.windows.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	w, err := s.windows.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !scope.CanManageDoctor(w.DoctorID) {
		return apperr.Forbidden("you cannot manage this doctor's schedule")
	}
	return s.windows.Delete(ctx, id)
}

// applyWindowInput validates in onto w. Overlapping windows for the same
// doctor and day are allowed.
func applyWindowInput(w *AvailabilityWindow, in WindowInput, creating bool) error {
	if creating || in.DayOfWeek != "" {
		day, ok := ParseWeekday(in.DayOfWeek)
		if !ok {
			return apperr.Validation("day_of_week must be one of Monday..Sunday")
		}
		w.Day = day
	}
	if creating || in.StartTime != "" {
		t, err := NormalizeTime("start_time", in.StartTime)
		if err != nil {
			return err
		}
		w.StartTime = t
	}
	if creating || in.EndTime != "" {
		t, err := NormalizeTime("end_time", in.EndTime)
		if err != nil {
			return err
		}
		w.EndTime = t
	}
	if in.MaxPatients != nil {
		w.MaxPatients = *in.MaxPatients
	}

	if w.StartTime >= w.EndTime {
		return apperr.Validation("start_time must be before end_time")
	}
	if w.MaxPatients < 1 || w.MaxPatients > MaxMaxPatients {
		return apperr.Validation("max_patients must be between 1 and %d", MaxMaxPatients)
	}
	return nil
}

// -- Appointments --

// CreateAppointment books a slot in status scheduled. The capacity count
// and the insert run under a lock on (doctor, date); the unique slot index
// decides between racing writers for the same time.
func (s *Service) CreateAppointment(ctx context.Context, scope access.Scope, in BookingInput) (*Appointment, error) {
	var patientID uuid.UUID
	switch scope.Principal.Role {
	case auth.RolePatient:
		patientID = *scope.PatientID
	case auth.RoleAdmin, auth.RoleStaff:
		if in.PatientID == nil || *in.PatientID == uuid.Nil {
			return nil, apperr.Validation("patient_id is required")
		}
		patientID = *in.PatientID
	default:
		return nil, apperr.Forbidden("only patients and front desk staff can book appointments")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if _, err := ParseDate("appointment_date", in.Date); err != nil {
		return nil, err
	}
	t, err := NormalizeTime("appointment_time", in.Time)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.PatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID: patientID,
		DoctorID:  in.DoctorID,
		Date:      in.Date,
		Time:      t,
		Status:    StatusScheduled,
	}
	var created *Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.LockDoctorDate(ctx, a.DoctorID, a.Date); err != nil {
			return err
		}
		if _, err := s.validator.Validate(ctx, SlotRequest{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}); err != nil {
			return err
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		got, err := s.appointments.GetByID(ctx, a.ID)
		created = got
		return err
	})
	if err != nil {
		s.recordRejection(err, a.DoctorID, a.Date, a.Time)
		return nil, err
	}

	metrics.RecordBooking()
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Str("date", created.Date).
		Str("time", created.Time).
		Msg("appointment booked")
	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, scope access.Scope, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanAccessAppointment(a.PatientID, a.DoctorID) {
		return nil, apperr.Forbidden("you cannot access this appointment")
	}
	return a, nil
}

// ListAppointments pins the doctor or patient filter of self-scoped callers
// before querying.
func (s *Service) ListAppointments(ctx context.Context, scope access.Scope, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status %q", *f.Status)
	}
	if f.From != nil {
		if _, err := ParseDate("from", *f.From); err != nil {
			return nil, 0, err
		}
	}
	if f.To != nil {
		if _, err := ParseDate("to", *f.To); err != nil {
			return nil, 0, err
		}
	}
	f.DoctorID, f.PatientID = scope.AppointmentFilter(f.DoctorID, f.PatientID)
	return s.appointments.List(ctx, f, limit, offset)
}

// UpdateAppointment applies a status change and, for staff and admin, a
// reschedule. A staff or admin update that leaves the appointment active is
// validated again like a booking, with the appointment's own row left out of
// the count. Moving it to a terminal status only records the outcome.
func (s *Service) UpdateAppointment(ctx context.Context, scope access.Scope, id uuid.UUID, ch AppointmentChange) (*Appointment, error) {
	role := scope.Principal.Role
	if !role.Privileged() && ch.Status == nil {
		return nil, apperr.Validation("status is required")
	}

	var before Status
	var updated *Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !scope.CanAccessAppointment(cur.PatientID, cur.DoctorID) {
			return apperr.Forbidden("you cannot access this appointment")
		}
		before = cur.Status

		next := *cur
		if ch.Status != nil {
			next.Status = *ch.Status
		}
		if err := CheckTransition(role, cur.Status, next.Status); err != nil {
			return err
		}

		if role.Privileged() {
			if err := applySlotChange(&next, ch); err != nil {
				return err
			}
			if next.Status.Active() {
				if err := s.appointments.LockDoctorDate(ctx, next.DoctorID, next.Date); err != nil {
					return err
				}
				req := SlotRequest{DoctorID: next.DoctorID, Date: next.Date, Time: next.Time, Exclude: &cur.ID}
				if _, err := s.validator.Validate(ctx, req); err != nil {
					return err
				}
			}
		}

		if err := s.appointments.Update(ctx, &next); err != nil {
			return err
		}
		updated, err = s.appointments.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if ch.DoctorID != nil || ch.Date != nil || ch.Time != nil {
			s.recordRejection(err, id, "", "")
		}
		return nil, err
	}

	if before != updated.Status {
		metrics.RecordTransition(string(before), string(updated.Status))
		s.logger.Info().
			Str("appointment_id", id.String()).
			Str("from", string(before)).
			Str("to", string(updated.Status)).
			Str("role", role.String()).
			Msg("appointment status changed")
	}
	return updated, nil
}

func applySlotChange(a *Appointment, ch AppointmentChange) error {
	if ch.DoctorID != nil {
		if *ch.DoctorID == uuid.Nil {
			return apperr.Validation("doctor_id is required")
		}
		a.DoctorID = *ch.DoctorID
	}
	if ch.Date != nil {
		if _, err := ParseDate("appointment_date", *ch.Date); err != nil {
			return err
		}
		a.Date = *ch.Date
	}
	if ch.Time != nil {
		t, err := NormalizeTime("appointment_time", *ch.Time)
		if err != nil {
			return err
		}
		a.Time = t
	}
	return nil
}

func (s *Service) recordRejection(err error, ref uuid.UUID, date, t string) {
	reason := slotRejection(err)
	if reason == "" {
		return
	}
	metrics.RecordBookingRejection(reason)
	s.logger.Debug().
		Str("reason", reason).
		Str("ref", ref.String()).
		Str("date", date).
		Str("time", t).
		Msg("booking rejected")
}
