package scheduling

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Weekday is the canonical English day name a window recurs on.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays in listing order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts a day name in any letter case.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

// WeekdayOf names the calendar day of date.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(date.Weekday().String())
}

// Order is 1 for Monday through 7 for Sunday.
func (d Weekday) Order() int {
	for i, w := range Weekdays {
		if w == d {
			return i + 1
		}
	}
	return 0
}

// AvailabilityWindow maps to the doctor_schedule table. The window covers
// StartTime <= t < EndTime on every Day.
type AvailabilityWindow struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Day         Weekday   `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	MaxPatients int       `db:"max_patients" json:"max_patients"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the normalized time t falls inside the window.
func (w *AvailabilityWindow) Contains(t string) bool {
	return w.StartTime <= t && t < w.EndTime
}

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the visit has not reached a terminal state.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusInProgress
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      string    `db:"appointment_date" json:"appointment_date"`
	Time      string    `db:"appointment_time" json:"appointment_time"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter narrows List. Nil fields are not applied.
type AppointmentFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *Status
	From      *string
	To        *string
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(field, s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, apperr.Validation("%s must be YYYY-MM-DD", field)
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.Validation("%s is not a valid date", field)
	}
	return d, nil
}

// NormalizeTime validates HH:MM or HH:MM:SS and returns HH:MM:SS.
func NormalizeTime(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if !timePattern.MatchString(s) {
		return "", apperr.Validation("%s must be HH:MM or HH:MM:SS", field)
	}
	if len(s) == 5 {
		s += ":00"
	}
	if _, err := time.Parse("15:04:05", s); err != nil {
		return "", apperr.Validation("%s is not a valid time of day", field)
	}
	return s, nil
}
