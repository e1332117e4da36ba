package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

var (
	ErrDoctorNotFound  = apperr.NotFound("doctor not found")
	ErrPatientNotFound = apperr.NotFound("patient not found")
)

var birthDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

// -- Directory --

func (s *Service) DoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.NotFound("doctor profile not found")
	}
	return d, err
}

func (s *Service) PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) PatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.NotFound("patient profile not found")
	}
	return p, err
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	if d.UserID == uuid.Nil {
		return apperr.Validation("user_id is required")
	}
	if d.Status == "" {
		d.Status = DoctorActive
	}
	if !d.Status.Valid() {
		return apperr.Validation("status must be active or inactive")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) SetDoctorStatus(ctx context.Context, id uuid.UUID, status DoctorStatus) (*Doctor, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status must be active or inactive")
	}
	if err := s.doctors.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, activeOnly, limit, offset)
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.BirthDate != nil && !birthDatePattern.MatchString(*p.BirthDate) {
		return apperr.Validation("birth_date must be YYYY-MM-DD")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, strings.TrimSpace(q), limit, offset)
}
