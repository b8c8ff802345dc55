package redisclient

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisSlotLocker(client, 2*time.Second), mr
}

func TestWithSlotLock_RunsCriticalSection(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), SlotKey(uuid.New(), "09:00"), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithSlotLock_ContendedKeyFails(t *testing.T) {
	locker, _ := newTestLocker(t)
	key := SlotKey(uuid.New(), "10:00")

	err := locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error {
		// Second acquisition of the same key while held must fail.
		inner := locker.WithSlotLock(ctx, key, func(ctx context.Context) error { return nil })
		require.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLock_ReleasedAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := SlotKey(uuid.New(), "11:00")

	require.NoError(t, locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error { return nil }))
	require.False(t, mr.Exists("lock:slot:"+key))

	// Key is free again, so a second run succeeds.
	require.NoError(t, locker.WithSlotLock(context.Background(), key, func(ctx context.Context) error { return nil }))
}

func TestWithSlotLock_DifferentSlotsDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t)
	scheduleID := uuid.New()

	err := locker.WithSlotLock(context.Background(), SlotKey(scheduleID, "09:00"), func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, SlotKey(scheduleID, "09:30"), func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
}
