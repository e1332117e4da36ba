package identity

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return ErrDoctorNotFound / ErrPatientNotFound when no row matches.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status DoctorStatus) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	List(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
}

// Directory resolves doctor and patient profiles for the scheduling and
// billing core.
type Directory interface {
	DoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	DoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	PatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
}
