package identity

import (
	"time"

	"github.com/google/uuid"
)

// DoctorStatus gates whether a doctor accepts bookings.
type DoctorStatus string

const (
	DoctorActive   DoctorStatus = "active"
	DoctorInactive DoctorStatus = "inactive"
)

func (s DoctorStatus) Valid() bool {
	return s == DoctorActive || s == DoctorInactive
}

// Doctor maps to the doctors table. UserID links the profile to the account
// that appears as the token subject.
type Doctor struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	UserID         uuid.UUID    `db:"user_id" json:"user_id"`
	Name           string       `db:"name" json:"name"`
	Specialization *string      `db:"specialization" json:"specialization,omitempty"`
	Mobile         *string      `db:"mobile" json:"mobile,omitempty"`
	Status         DoctorStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

func (d *Doctor) IsActive() bool { return d.Status == DoctorActive }

// Patient maps to the patients table. Walk-in patients registered by staff
// have no account, so UserID is optional.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name      string     `db:"name" json:"name"`
	Gender    *string    `db:"gender" json:"gender,omitempty"`
	BirthDate *string    `db:"birth_date" json:"birth_date,omitempty"`
	Mobile    *string    `db:"mobile" json:"mobile,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
