package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

var (
	ErrWindowNotFound      = apperr.NotFound("schedule not found")
	ErrAppointmentNotFound = apperr.NotFound("appointment not found")
)

// appointmentsSlotIndex is the partial unique index over non-cancelled rows.
const appointmentsSlotIndex = "appointments_doctor_slot_key"

// =========== Window Repository ===========

type windowRepoPG struct{ pool *pgxpool.Pool }

func NewWindowRepoPG(pool *pgxpool.Pool) WindowRepository { return &windowRepoPG{pool: pool} }

func (r *windowRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const windowCols = `id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI:SS'),
	to_char(end_time, 'HH24:MI:SS'), max_patients, created_at, updated_at`

const dayOrder = `CASE day_of_week
	WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3
	WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6 ELSE 7 END`

func (r *windowRepoPG) scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	err := row.Scan(&w.ID, &w.DoctorID, &w.Day, &w.StartTime, &w.EndTime,
		&w.MaxPatients, &w.CreatedAt, &w.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &w, nil
}

func (r *windowRepoPG) Create(ctx context.Context, w *AvailabilityWindow) error {
	w.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_schedule (id, doctor_id, day_of_week, start_time, end_time, max_patients)
		VALUES ($1, $2, $3, $4::time, $5::time, $6)
		RETURNING created_at, updated_at`,
		w.ID, w.DoctorID, w.Day, w.StartTime, w.EndTime, w.MaxPatients,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("doctor not found")
	}
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *windowRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	return r.scanWindow(r.conn(ctx).QueryRow(ctx, `SELECT `+windowCols+` FROM doctor_schedule WHERE id = $1`, id))
}

func (r *windowRepoPG) Update(ctx context.Context, w *AvailabilityWindow) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor_schedule SET day_of_week=$2, start_time=$3::time, end_time=$4::time,
			max_patients=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		w.ID, w.Day, w.StartTime, w.EndTime, w.MaxPatients,
	).Scan(&w.UpdatedAt)
	if db.IsNotFound(err) {
		return ErrWindowNotFound
	}
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (r *windowRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_schedule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *windowRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error) {
	return r.list(ctx, `SELECT `+windowCols+` FROM doctor_schedule
		WHERE doctor_id = $1 ORDER BY `+dayOrder+`, start_time`, doctorID)
}

func (r *windowRepoPG) ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]*AvailabilityWindow, error) {
	return r.list(ctx, `SELECT `+windowCols+` FROM doctor_schedule
		WHERE doctor_id = $1 AND day_of_week = $2 ORDER BY start_time`, doctorID, day)
}

func (r *windowRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*AvailabilityWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	defer rows.Close()
	var items []*AvailabilityWindow
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptCols = `id, patient_id, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'),
	to_char(appointment_time, 'HH24:MI:SS'), status, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time, status)
		VALUES ($1, $2, $3, $4::date, $5::time, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return r.mapWriteErr("insert appointment", err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET doctor_id=$2, appointment_date=$3::date, appointment_time=$4::time,
			status=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.DoctorID, a.Date, a.Time, a.Status,
	).Scan(&a.UpdatedAt)
	if db.IsNotFound(err) {
		return ErrAppointmentNotFound
	}
	return r.mapWriteErr("update appointment", err)
}

func (r *appointmentRepoPG) mapWriteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, appointmentsSlotIndex):
		return ErrSlotAlreadyBooked.Wrap(err)
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound("doctor or patient not found")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}
	if f.DoctorID != nil {
		add(` AND doctor_id = $%d`, *f.DoctorID)
	}
	if f.PatientID != nil {
		add(` AND patient_id = $%d`, *f.PatientID)
	}
	if f.Status != nil {
		add(` AND status = $%d`, *f.Status)
	}
	if f.From != nil {
		add(` AND appointment_date >= $%d::date`, *f.From)
	}
	if f.To != nil {
		add(` AND appointment_date <= $%d::date`, *f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY appointment_date DESC, appointment_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) CountBooked(ctx context.Context, doctorID uuid.UUID, date string, exclude *uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2::date AND status <> 'cancelled'
			AND ($3::uuid IS NULL OR id <> $3::uuid)`,
		doctorID, date, exclude,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count booked appointments: %w", err)
	}
	return n, nil
}

func (r *appointmentRepoPG) LockDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) error {
	if _, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doctorID.String()+"/"+date); err != nil {
		return fmt.Errorf("lock doctor day: %w", err)
	}
	return nil
}
