package scheduling

import (
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

var errPatientCancelOnly = apperr.Forbidden("Patients can only cancel appointments")

// CheckTransition decides whether role may move an appointment from one
// status to another. Setting the current status again is always allowed.
//
//	patient:      scheduled -> cancelled
//	doctor:       scheduled -> confirmed -> in_progress,
//	              any active -> completed | cancelled | no_show
//	staff, admin: anything
func CheckTransition(role auth.Role, from, to Status) error {
	if !to.Valid() {
		return apperr.Validation("invalid status %q", to)
	}
	if from == to {
		return nil
	}

	switch role {
	case auth.RoleAdmin, auth.RoleStaff:
		return nil

	case auth.RoleDoctor:
		if !from.Active() {
			return ErrInvalidTransition.With("from", string(from)).With("to", string(to))
		}
		switch to {
		case StatusCompleted, StatusCancelled, StatusNoShow:
			return nil
		case StatusConfirmed:
			if from == StatusScheduled {
				return nil
			}
		case StatusInProgress:
			if from == StatusScheduled || from == StatusConfirmed {
				return nil
			}
		case StatusScheduled:
		}
		return ErrInvalidTransition.With("from", string(from)).With("to", string(to))

	case auth.RolePatient:
		if to != StatusCancelled {
			return errPatientCancelOnly
		}
		if from != StatusScheduled {
			return ErrInvalidTransition.With("from", string(from)).With("to", string(to))
		}
		return nil

	case auth.RoleUnknown:
		return apperr.ErrForbidden
	}
	return apperr.ErrForbidden
}
