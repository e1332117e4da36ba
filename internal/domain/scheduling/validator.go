package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
)

// DoctorLookup is the slice of the identity directory the validator needs.
type DoctorLookup interface {
	DoctorByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

// SlotRequest is a candidate booking. Date is YYYY-MM-DD and Time is
// normalized HH:MM:SS. Exclude names the appointment being rescheduled so
// its own row does not count against capacity.
type SlotRequest struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
	Exclude  *uuid.UUID
}

// SlotValidator matches a request against the doctor's weekly windows and
// the day's bookings. It is advisory: the unique slot index stays the final
// arbiter between concurrent writers.
type SlotValidator struct {
	doctors      DoctorLookup
	windows      WindowRepository
	appointments AppointmentRepository
}

func NewSlotValidator(doctors DoctorLookup, windows WindowRepository, appts AppointmentRepository) *SlotValidator {
	return &SlotValidator{doctors: doctors, windows: windows, appointments: appts}
}

// Validate returns the matched window or one of ErrDoctorInactive,
// ErrOutsideSchedule and ErrFullyBooked.
func (v *SlotValidator) Validate(ctx context.Context, req SlotRequest) (*AvailabilityWindow, error) {
	doctor, err := v.doctors.DoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive() {
		return nil, ErrDoctorInactive
	}

	date, err := ParseDate("appointment_date", req.Date)
	if err != nil {
		return nil, err
	}
	day := WeekdayOf(date)

	windows, err := v.windows.ListByDoctorDay(ctx, req.DoctorID, day)
	if err != nil {
		return nil, err
	}
	window := matchWindow(windows, req.Time)
	if window == nil {
		return nil, ErrOutsideSchedule.With("day", string(day))
	}

	booked, err := v.appointments.CountBooked(ctx, req.DoctorID, req.Date, req.Exclude)
	if err != nil {
		return nil, err
	}
	if booked >= window.MaxPatients {
		return nil, ErrFullyBooked.With("max_patients", window.MaxPatients)
	}
	return window, nil
}

// matchWindow picks the earliest-starting window containing t.
func matchWindow(windows []*AvailabilityWindow, t string) *AvailabilityWindow {
	var best *AvailabilityWindow
	for _, w := range windows {
		if !w.Contains(t) {
			continue
		}
		if best == nil || w.StartTime < best.StartTime {
			best = w
		}
	}
	return best
}

// slotRejection returns the machine code of a slot conflict, or "" for any
// other error.
func slotRejection(err error) string {
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindConflict {
		return ""
	}
	switch e.Code {
	case apperr.CodeOutsideSchedule, apperr.CodeFullyBooked,
		apperr.CodeDoctorInactive, apperr.CodeSlotAlreadyBooked:
		return e.Code
	}
	return ""
}
