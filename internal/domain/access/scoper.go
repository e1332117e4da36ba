// Package access narrows reads and writes to the records a caller may see.
// Admin and staff are unrestricted. Doctors and patients are pinned to their
// own profile, resolved through the identity directory.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// Scope is the resolved record set of one caller.
type Scope struct {
	Principal auth.Principal
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// Unrestricted reports whether the scope covers every record.
func (s Scope) Unrestricted() bool {
	return s.Principal.Role.Privileged()
}

// AppointmentFilter pins the doctor or patient filter of a self-scoped
// caller. Values supplied by the caller are overwritten.
func (s Scope) AppointmentFilter(doctorID, patientID *uuid.UUID) (*uuid.UUID, *uuid.UUID) {
	switch s.Principal.Role {
	case auth.RoleDoctor:
		return s.DoctorID, patientID
	case auth.RolePatient:
		return doctorID, s.PatientID
	default:
		return doctorID, patientID
	}
}

// BillFilter pins the patient filter of a patient caller.
func (s Scope) BillFilter(patientID *uuid.UUID) *uuid.UUID {
	if s.Principal.Role == auth.RolePatient {
		return s.PatientID
	}
	return patientID
}

func (s Scope) CanAccessAppointment(patientID, doctorID uuid.UUID) bool {
	switch s.Principal.Role {
	case auth.RoleAdmin, auth.RoleStaff:
		return true
	case auth.RoleDoctor:
		return s.DoctorID != nil && *s.DoctorID == doctorID
	case auth.RolePatient:
		return s.PatientID != nil && *s.PatientID == patientID
	default:
		return false
	}
}

// CanAccessBill reports read access to a bill. Doctors have none.
func (s Scope) CanAccessBill(patientID uuid.UUID) bool {
	switch s.Principal.Role {
	case auth.RoleAdmin, auth.RoleStaff:
		return true
	case auth.RolePatient:
		return s.PatientID != nil && *s.PatientID == patientID
	default:
		return false
	}
}

// CanManageDoctor reports whether the caller may edit the doctor's schedule.
func (s Scope) CanManageDoctor(doctorID uuid.UUID) bool {
	switch s.Principal.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleDoctor:
		return s.DoctorID != nil && *s.DoctorID == doctorID
	default:
		return false
	}
}

// Scoper resolves a principal into a Scope.
type Scoper struct {
	dir identity.Directory
}

func NewScoper(dir identity.Directory) *Scoper {
	return &Scoper{dir: dir}
}

func (s *Scoper) Resolve(ctx context.Context, p auth.Principal) (Scope, error) {
	scope := Scope{Principal: p}
	switch p.Role {
	case auth.RoleAdmin, auth.RoleStaff:
		return scope, nil
	case auth.RoleDoctor:
		d, err := s.dir.DoctorByUserID(ctx, p.UserID)
		if err != nil {
			return Scope{}, err
		}
		scope.DoctorID = &d.ID
		return scope, nil
	case auth.RolePatient:
		pt, err := s.dir.PatientByUserID(ctx, p.UserID)
		if err != nil {
			return Scope{}, err
		}
		scope.PatientID = &pt.ID
		return scope, nil
	default:
		return Scope{}, apperr.Forbidden("unknown role")
	}
}
