package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type WindowRepository interface {
	Create(ctx context.Context, w *AvailabilityWindow) error
	GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	Update(ctx context.Context, w *AvailabilityWindow) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByDoctor orders Monday..Sunday, then by start time.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error)
	// ListByDoctorDay orders by start time.
	ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]*AvailabilityWindow, error)
}

type AppointmentRepository interface {
	// Create and Update return ErrSlotAlreadyBooked when another active
	// appointment holds the same doctor, date and time.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
	// CountBooked counts the doctor's appointments on date that are not
	// cancelled, leaving out exclude when set.
	CountBooked(ctx context.Context, doctorID uuid.UUID, date string, exclude *uuid.UUID) (int, error)
	// LockDoctorDate serializes bookings for one doctor and day until the
	// surrounding transaction ends.
	LockDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) error
}
