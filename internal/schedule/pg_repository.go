package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carelink/clinic-booking/internal/db"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const scheduleColumns = `id, doctor_id, date, start_time, end_time, total_slots, slot_duration, is_active, created_at, updated_at`

const slotColumns = `id, schedule_id, slot_number, start_time, end_time, duration, status, is_booked, patient_id, appointment_id, booking_time, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.TotalSlots,
		&s.SlotDuration,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var sl Slot
	err := row.Scan(
		&sl.ID,
		&sl.ScheduleID,
		&sl.SlotNumber,
		&sl.StartTime,
		&sl.EndTime,
		&sl.Duration,
		&sl.Status,
		&sl.IsBooked,
		&sl.PatientID,
		&sl.AppointmentID,
		&sl.BookingTime,
		&sl.CreatedAt,
		&sl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (r *PgRepository) Upsert(ctx context.Context, doctorID uuid.UUID, day time.Time, w Window, slotDuration int, slots []Slot) (*Schedule, error) {
	canonical := NormalizeDay(day)
	dayStart, dayEnd := DayRange(day)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace an existing row for the day first; legacy rows stored at
	// midnight UTC are caught by the range match and re-normalized.
	sched, err := scanSchedule(tx.QueryRow(ctx, `
		UPDATE schedules
		SET date = $3,
		    start_time = $4,
		    end_time = $5,
		    total_slots = $6,
		    slot_duration = $7,
		    is_active = true,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND date BETWEEN $2 AND $8
		RETURNING `+scheduleColumns+`
	`, doctorID, dayStart, canonical, w.StartTime, w.EndTime, len(slots), slotDuration, dayEnd))
	if errors.Is(err, ErrScheduleNotFound) {
		sched, err = scanSchedule(tx.QueryRow(ctx, `
			INSERT INTO schedules (id, doctor_id, date, start_time, end_time, total_slots, slot_duration, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
			ON CONFLICT (doctor_id, date) DO UPDATE
			SET start_time = EXCLUDED.start_time,
			    end_time = EXCLUDED.end_time,
			    total_slots = EXCLUDED.total_slots,
			    slot_duration = EXCLUDED.slot_duration,
			    is_active = true,
			    updated_at = now()
			RETURNING `+scheduleColumns+`
		`, uuid.New(), doctorID, canonical, w.StartTime, w.EndTime, len(slots), slotDuration))
	}
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM schedule_slots WHERE schedule_id = $1`, sched.ID); err != nil {
		return nil, fmt.Errorf("clear slot grid: %w", err)
	}

	for i := range slots {
		sl := &slots[i]
		sl.ID = uuid.New()
		sl.ScheduleID = sched.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO schedule_slots (id, schedule_id, slot_number, start_time, end_time, duration, status, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, now(), now())
		`, sl.ID, sl.ScheduleID, sl.SlotNumber, sl.StartTime, sl.EndTime, sl.Duration, sl.Status)
		if err != nil {
			return nil, fmt.Errorf("insert slot %d: %w", sl.SlotNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}

	sched.Slots = slots
	return sched, nil
}

func (r *PgRepository) GetForDay(ctx context.Context, doctorID uuid.UUID, day time.Time, activeOnly bool) (*Schedule, error) {
	dayStart, dayEnd := DayRange(day)

	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE doctor_id = $1
		  AND date BETWEEN $2 AND $3
	`
	if activeOnly {
		query += ` AND is_active = true`
	}

	sched, err := scanSchedule(r.pool.QueryRow(ctx, query, doctorID, dayStart, dayEnd))
	if err != nil {
		return nil, err
	}

	if err := r.loadSlots(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (r *PgRepository) ListActiveForDay(ctx context.Context, day time.Time) ([]Schedule, error) {
	dayStart, dayEnd := DayRange(day)

	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE date BETWEEN $1 AND $2
		  AND is_active = true
		ORDER BY doctor_id
	`, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	schedules, err := collectSchedules(rows)
	if err != nil {
		return nil, err
	}

	for i := range schedules {
		if err := r.loadSlots(ctx, &schedules[i]); err != nil {
			return nil, err
		}
	}
	return schedules, nil
}

func (r *PgRepository) ListUpcoming(ctx context.Context, doctorID uuid.UUID, fromDay time.Time) ([]Schedule, error) {
	dayStart, _ := DayRange(fromDay)

	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE doctor_id = $1
		  AND date >= $2
		ORDER BY date ASC
	`, doctorID, dayStart)
	if err != nil {
		return nil, err
	}
	schedules, err := collectSchedules(rows)
	if err != nil {
		return nil, err
	}

	for i := range schedules {
		if err := r.loadSlots(ctx, &schedules[i]); err != nil {
			return nil, err
		}
	}
	return schedules, nil
}

func (r *PgRepository) ListHistory(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Schedule, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE doctor_id = $1
		ORDER BY date DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	schedules, err := collectSchedules(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM schedules WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return schedules, total, nil
}

func (r *PgRepository) DeleteForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) error {
	dayStart, dayEnd := DayRange(day)

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedules
		WHERE doctor_id = $1
		  AND date BETWEEN $2 AND $3
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) ListForDays(ctx context.Context, doctorID uuid.UUID, days []time.Time) ([]Schedule, error) {
	var result []Schedule
	for _, day := range days {
		dayStart, dayEnd := DayRange(day)
		sched, err := scanSchedule(r.pool.QueryRow(ctx, `
			SELECT `+scheduleColumns+`
			FROM schedules
			WHERE doctor_id = $1
			  AND date BETWEEN $2 AND $3
		`, doctorID, dayStart, dayEnd))
		if errors.Is(err, ErrScheduleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *sched)
	}
	return result, nil
}

func (r *PgRepository) loadSlots(ctx context.Context, sched *Schedule) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE schedule_id = $1
		ORDER BY slot_number ASC
	`, sched.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return err
		}
		slots = append(slots, *sl)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sched.Slots = slots
	return nil
}

func collectSchedules(rows pgx.Rows) ([]Schedule, error) {
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
