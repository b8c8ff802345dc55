package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrDoctorNotFound = errors.New("doctor not found")

// Repository is the read-only surface into the user directory.
type Repository interface {
	// GetByID returns the user regardless of role; callers decide whether a
	// non-doctor row is an error. ErrDoctorNotFound when the row is absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// GetVerifiedDoctor returns the user only if it is a verified doctor.
	GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
