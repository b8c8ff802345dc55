package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/clinic-booking/internal/db"
	"github.com/carelink/clinic-booking/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, doctorIDs, 7); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		fee := float64(gofakeit.Number(20, 200))
		hasBreak := gofakeit.Bool()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, user_type, first_name, last_name, email, phone,
				specialization, experience_years, consultation_fee, is_active, verified,
				break_enabled, break_start, break_end, created_at, updated_at)
			VALUES ($1, 'doctor', $2, $3, $4, $5, $6, $7, $8, true, true, $9, '13:00', '14:00', now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), gofakeit.Phone(),
			spec, gofakeit.Number(1, 30), fee, hasBreak)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, user_type, first_name, last_name, email, is_active, created_at, updated_at)
				VALUES ($1, 'patient', $2, $3, $4, true, now(), now())
			`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSchedules gives every doctor a 09:00-17:00 grid for today and the next
// days-1 days.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID, days int) error {
	log.Printf("seeding schedules for %d doctors over %d days", len(doctorIDs), days)

	today := schedule.Today()

	for _, doctorID := range doctorIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for d := 0; d < days; d++ {
			day := schedule.NormalizeDay(today.AddDate(0, 0, d))
			totalSlots := gofakeit.Number(8, 16)

			slots, err := schedule.GenerateSlots("09:00", "17:00", totalSlots)
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("generate slots: %w", err)
			}

			scheduleID := uuid.New()
			_, err = tx.Exec(ctx, `
				INSERT INTO schedules (id, doctor_id, date, start_time, end_time, total_slots, slot_duration, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, '09:00', '17:00', $4, $5, true, now(), now())
			`, scheduleID, doctorID, day, totalSlots, slots[0].Duration)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			for _, sl := range slots {
				_, err = tx.Exec(ctx, `
					INSERT INTO schedule_slots (id, schedule_id, slot_number, start_time, end_time, duration, status, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, 'available', false, now(), now())
				`, uuid.New(), scheduleID, sl.SlotNumber, sl.StartTime, sl.EndTime, sl.Duration)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("schedules seeded")
	return nil
}
