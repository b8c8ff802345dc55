package doctor

import (
	"context"
	"errors"

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

const userColumns = `id, user_type, first_name, last_name, email, phone, specialization, experience_years,
	consultation_fee, is_active, verified, break_enabled, break_start, break_end, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var breakStart, breakEnd *string

	err := row.Scan(
		&d.ID,
		&d.UserType,
		&d.FirstName,
		&d.LastName,
		&d.Email,
		&d.Phone,
		&d.Specialization,
		&d.Experience,
		&d.ConsultationFee,
		&d.IsActive,
		&d.Verified,
		&d.Break.Enabled,
		&breakStart,
		&breakEnd,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if breakStart != nil {
		d.Break.StartTime = *breakStart
	}
	if breakEnd != nil {
		d.Break.EndTime = *breakEnd
	}
	return &d, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
		  AND user_type = 'doctor'
		  AND verified = true
	`, id)
	return scanDoctor(row)
}
