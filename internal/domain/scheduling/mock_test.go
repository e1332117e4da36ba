package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
)

// -- Mock Window Repository --

type mockWindowRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*AvailabilityWindow
}

func newMockWindowRepo() *mockWindowRepo {
	return &mockWindowRepo{windows: make(map[uuid.UUID]*AvailabilityWindow)}
}

func (m *mockWindowRepo) Create(_ context.Context, w *AvailabilityWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	cp := *w
	m.windows[w.ID] = &cp
	return nil
}

func (m *mockWindowRepo) GetByID(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *mockWindowRepo) Update(_ context.Context, w *AvailabilityWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[w.ID]; !ok {
		return ErrWindowNotFound
	}
	w.UpdatedAt = time.Now()
	cp := *w
	m.windows[w.ID] = &cp
	return nil
}

func (m *mockWindowRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(m.windows, id)
	return nil
}

func (m *mockWindowRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error) {
	return m.filter(func(w *AvailabilityWindow) bool { return w.DoctorID == doctorID }), nil
}

func (m *mockWindowRepo) ListByDoctorDay(_ context.Context, doctorID uuid.UUID, day Weekday) ([]*AvailabilityWindow, error) {
	return m.filter(func(w *AvailabilityWindow) bool { return w.DoctorID == doctorID && w.Day == day }), nil
}

func (m *mockWindowRepo) filter(keep func(*AvailabilityWindow) bool) []*AvailabilityWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AvailabilityWindow
	for _, w := range m.windows {
		if keep(w) {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day.Order() < out[j].Day.Order()
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// -- Mock Appointment Repository --

// mockAppointmentRepo enforces the same slot uniqueness as the partial
// unique index in the schema.
type mockAppointmentRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
	locks int
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) slotTaken(a *Appointment) bool {
	if a.Status == StatusCancelled {
		return false
	}
	for _, other := range m.appts {
		if other.ID != a.ID && other.Status != StatusCancelled &&
			other.DoctorID == a.DoctorID && other.Date == a.Date && other.Time == a.Time {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	if m.slotTaken(a) {
		return ErrSlotAlreadyBooked
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	if m.slotTaken(a) {
		return ErrSlotAlreadyBooked
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		switch {
		case f.DoctorID != nil && a.DoctorID != *f.DoctorID,
			f.PatientID != nil && a.PatientID != *f.PatientID,
			f.Status != nil && a.Status != *f.Status,
			f.From != nil && a.Date < *f.From,
			f.To != nil && a.Date > *f.To:
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockAppointmentRepo) CountBooked(_ context.Context, doctorID uuid.UUID, date string, exclude *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appts {
		if a.DoctorID != doctorID || a.Date != date || a.Status == StatusCancelled {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockAppointmentRepo) LockDoctorDate(_ context.Context, _ uuid.UUID, _ string) error {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return nil
}

// -- Mock Directory --

type mockDirectory struct {
	doctors  map[uuid.UUID]*identity.Doctor
	patients map[uuid.UUID]*identity.Patient
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		doctors:  make(map[uuid.UUID]*identity.Doctor),
		patients: make(map[uuid.UUID]*identity.Patient),
	}
}

func (m *mockDirectory) DoctorByID(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDirectory) DoctorByUserID(_ context.Context, userID uuid.UUID) (*identity.Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("doctor profile not found")
}

func (m *mockDirectory) PatientByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockDirectory) PatientByUserID(_ context.Context, userID uuid.UUID) (*identity.Patient, error) {
	for _, p := range m.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient profile not found")
}

// serialTx runs one unit of work at a time, standing in for the advisory
// lock a Postgres transaction would hold.
type serialTx struct{ mu sync.Mutex }

func (s *serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}
