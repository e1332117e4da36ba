package scheduling

import (
	"errors"
	"testing"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		role auth.Role
		from Status
		to   Status
		want apperr.Kind // KindInternal means allowed
	}{
		// patient
		{auth.RolePatient, StatusScheduled, StatusCancelled, apperr.KindInternal},
		{auth.RolePatient, StatusScheduled, StatusCompleted, apperr.KindForbidden},
		{auth.RolePatient, StatusScheduled, StatusConfirmed, apperr.KindForbidden},
		{auth.RolePatient, StatusConfirmed, StatusCancelled, apperr.KindConflict},
		{auth.RolePatient, StatusCompleted, StatusCancelled, apperr.KindConflict},
		{auth.RolePatient, StatusScheduled, StatusScheduled, apperr.KindInternal},

		// doctor
		{auth.RoleDoctor, StatusScheduled, StatusConfirmed, apperr.KindInternal},
		{auth.RoleDoctor, StatusScheduled, StatusInProgress, apperr.KindInternal},
		{auth.RoleDoctor, StatusConfirmed, StatusInProgress, apperr.KindInternal},
		{auth.RoleDoctor, StatusInProgress, StatusCompleted, apperr.KindInternal},
		{auth.RoleDoctor, StatusScheduled, StatusNoShow, apperr.KindInternal},
		{auth.RoleDoctor, StatusConfirmed, StatusCancelled, apperr.KindInternal},
		{auth.RoleDoctor, StatusInProgress, StatusConfirmed, apperr.KindConflict},
		{auth.RoleDoctor, StatusConfirmed, StatusScheduled, apperr.KindConflict},
		{auth.RoleDoctor, StatusCompleted, StatusCancelled, apperr.KindConflict},
		{auth.RoleDoctor, StatusCancelled, StatusScheduled, apperr.KindConflict},
		{auth.RoleDoctor, StatusNoShow, StatusCompleted, apperr.KindConflict},

		// staff and admin
		{auth.RoleStaff, StatusCompleted, StatusScheduled, apperr.KindInternal},
		{auth.RoleStaff, StatusCancelled, StatusConfirmed, apperr.KindInternal},
		{auth.RoleAdmin, StatusNoShow, StatusCompleted, apperr.KindInternal},

		// unknown role or status
		{auth.RoleUnknown, StatusScheduled, StatusCancelled, apperr.KindForbidden},
		{auth.RoleAdmin, StatusScheduled, Status("booked"), apperr.KindValidation},
	}

	for _, tt := range tests {
		name := tt.role.String() + "/" + string(tt.from) + "->" + string(tt.to)
		t.Run(name, func(t *testing.T) {
			err := CheckTransition(tt.role, tt.from, tt.to)
			if tt.want == apperr.KindInternal {
				if err != nil {
					t.Fatalf("expected transition to be allowed, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s error, got nil", tt.want)
			}
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestCheckTransition_InvalidTransitionDetails(t *testing.T) {
	err := CheckTransition(auth.RoleDoctor, StatusCompleted, StatusCancelled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Details["from"] != "completed" || e.Details["to"] != "cancelled" {
		t.Errorf("unexpected details: %v", e.Details)
	}
}
