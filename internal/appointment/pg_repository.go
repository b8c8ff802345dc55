package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carelink/clinic-booking/internal/db"
	"github.com/carelink/clinic-booking/internal/schedule"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, doctor_id, date, time, time_slot, duration, reason, type, status,
	schedule_id, slot_id, cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.TimeSlot,
		&a.Duration,
		&a.Reason,
		&a.Type,
		&a.Status,
		&a.ScheduleID,
		&a.SlotID,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// claimSlot conditionally flips the slot to booked inside tx. It returns the
// slot id on success; on a miss it re-reads to distinguish a taken slot from
// a nonexistent one.
func claimSlot(ctx context.Context, tx pgx.Tx, scheduleID uuid.UUID, slotStart string, patientID, appointmentID uuid.UUID) (uuid.UUID, error) {
	var slotID uuid.UUID
	err := tx.QueryRow(ctx, `
		UPDATE schedule_slots
		SET status = 'booked',
		    is_booked = true,
		    patient_id = $3,
		    appointment_id = $4,
		    booking_time = now(),
		    updated_at = now()
		WHERE schedule_id = $1
		  AND start_time = $2
		  AND status = 'available'
		RETURNING id
	`, scheduleID, slotStart, patientID, appointmentID).Scan(&slotID)
	if err == nil {
		return slotID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("claim slot: %w", err)
	}

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM schedule_slots
		WHERE schedule_id = $1 AND start_time = $2
	`, scheduleID, slotStart).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrSlotNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("recheck slot: %w", err)
	}
	return uuid.Nil, ErrSlotAlreadyBooked
}

// releaseSlot frees a slot back to available, but only while it still
// belongs to the given appointment. A slot reassigned since is left alone.
func releaseSlot(ctx context.Context, tx pgx.Tx, slotID, appointmentID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE schedule_slots
		SET status = 'available',
		    is_booked = false,
		    patient_id = NULL,
		    appointment_id = NULL,
		    booking_time = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND appointment_id = $2
	`, slotID, appointmentID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func (r *PgRepository) ClaimSlotAndCreate(ctx context.Context, p ClaimParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	appointmentID := uuid.New()

	slotID, err := claimSlot(ctx, tx, p.ScheduleID, p.SlotStart, p.PatientID, appointmentID)
	if err != nil {
		return nil, err
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, time, time_slot, duration, reason, type, status, schedule_id, slot_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'scheduled', $10, $11, now(), now())
		RETURNING `+appointmentColumns+`
	`, appointmentID, p.PatientID, p.DoctorID, p.Date, p.SlotStart, p.TimeSlot, p.Duration, p.Reason, p.Type, p.ScheduleID, slotID))
	if err != nil {
		// The partial unique index on (doctor_id, date, time) for live
		// statuses backstops the slot-level guard.
		if isUniqueViolation(err) {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time, a.time_slot, a.duration, a.reason, a.type, a.status,
	       a.schedule_id, a.slot_id, a.cancellation_reason, a.cancelled_by, a.cancelled_at, a.created_at, a.updated_at,
	       d.first_name, d.last_name, d.email, d.phone, d.specialization,
	       p.first_name, p.last_name, p.email, p.phone
	FROM appointments a
	JOIN users d ON d.id = a.doctor_id
	JOIN users p ON p.id = a.patient_id
`

func scanDetail(row pgx.Row) (*Detail, error) {
	var de Detail
	var dFirst, dLast, pFirst, pLast string

	err := row.Scan(
		&de.ID,
		&de.PatientID,
		&de.DoctorID,
		&de.Date,
		&de.Time,
		&de.TimeSlot,
		&de.Duration,
		&de.Reason,
		&de.Type,
		&de.Status,
		&de.ScheduleID,
		&de.SlotID,
		&de.CancellationReason,
		&de.CancelledBy,
		&de.CancelledAt,
		&de.CreatedAt,
		&de.UpdatedAt,
		&dFirst,
		&dLast,
		&de.Doctor.Email,
		&de.Doctor.Phone,
		&de.Doctor.Specialization,
		&pFirst,
		&pLast,
		&de.Patient.Email,
		&de.Patient.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	de.Doctor.ID = de.DoctorID
	de.Doctor.Name = dFirst + " " + dLast
	de.Patient.ID = de.PatientID
	de.Patient.Name = pFirst + " " + pLast
	return &de, nil
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	de, err := scanDetail(r.pool.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, err
	}

	history, err := r.ListRescheduleHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	de.RescheduleHistory = history
	return de, nil
}

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		de, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *de)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, status Status, fromDay *time.Time) ([]Detail, error) {
	query := detailQuery + ` WHERE a.patient_id = $1`
	args := []any{patientID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if fromDay != nil {
		dayStart, _ := schedule.DayRange(*fromDay)
		args = append(args, dayStart)
		query += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	query += ` ORDER BY a.date ASC, a.time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, day *time.Time, status Status) ([]Detail, error) {
	query := detailQuery + ` WHERE a.doctor_id = $1`
	args := []any{doctorID}

	if day != nil {
		dayStart, dayEnd := schedule.DayRange(*day)
		args = append(args, dayStart, dayEnd)
		query += fmt.Sprintf(" AND a.date BETWEEN $%d AND $%d", len(args)-1, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	query += ` ORDER BY a.date ASC, a.time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) CancelAndRelease(ctx context.Context, id uuid.UUID, expect Status, reason, by string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $3,
		    cancelled_by = $4,
		    cancelled_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, expect, reason, by))
	if err != nil {
		return nil, err
	}

	if appt.SlotID != nil {
		if err := releaseSlot(ctx, tx, *appt.SlotID, appt.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) RescheduleAndReclaim(ctx context.Context, p RescheduleParams, expect Status) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback(ctx)

	// Capture the pre-change slot for the history entry and lock the row.
	var oldDate time.Time
	var oldTime, oldTimeSlot string
	err = tx.QueryRow(ctx, `
		SELECT date, time, time_slot
		FROM appointments
		WHERE id = $1
		  AND status = $2
		FOR UPDATE
	`, p.AppointmentID, expect).Scan(&oldDate, &oldTime, &oldTimeSlot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment for reschedule: %w", err)
	}
	if oldTimeSlot == "" {
		oldTimeSlot = oldTime
	}

	// Claim the new slot; if it is gone the transaction aborts and the
	// original claim stands.
	newSlotID, err := claimSlot(ctx, tx, p.NewScheduleID, p.NewSlotStart, p.PatientID, p.AppointmentID)
	if err != nil {
		return nil, err
	}

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    time = $3,
		    time_slot = $4,
		    duration = $5,
		    schedule_id = $6,
		    slot_id = $7,
		    status = 'rescheduled',
		    updated_at = now()
		WHERE id = $1
		  AND status = $8
		RETURNING `+appointmentColumns+`
	`, p.AppointmentID, p.NewDate, p.NewSlotStart, p.NewTimeSlot, p.NewDuration, p.NewScheduleID, newSlotID, expect))
	if err != nil {
		return nil, err
	}

	if p.OldSlotID != nil && *p.OldSlotID != newSlotID {
		if err := releaseSlot(ctx, tx, *p.OldSlotID, p.AppointmentID); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reschedule_entries (appointment_id, old_date, old_time, new_date, new_time, reason, rescheduled_by, rescheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, p.AppointmentID, oldDate, oldTimeSlot, p.NewDate, p.NewTimeSlot, p.Reason, p.Actor)
	if err != nil {
		return nil, fmt.Errorf("append reschedule history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) ListRescheduleHistory(ctx context.Context, id uuid.UUID) ([]RescheduleEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, old_date, old_time, new_date, new_time, reason, rescheduled_by, rescheduled_at
		FROM reschedule_entries
		WHERE appointment_id = $1
		ORDER BY rescheduled_at ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RescheduleEntry
	for rows.Next() {
		var e RescheduleEntry
		err := rows.Scan(
			&e.ID,
			&e.AppointmentID,
			&e.OldDate,
			&e.OldTime,
			&e.NewDate,
			&e.NewTime,
			&e.Reason,
			&e.RescheduledBy,
			&e.RescheduledAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) MarkNoShowsBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE appointments
		SET status = 'no-show',
		    updated_at = now()
		WHERE status IN ('scheduled', 'rescheduled')
		  AND date < $1
		RETURNING `+appointmentColumns+`
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
