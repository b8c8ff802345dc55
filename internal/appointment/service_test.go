package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/clinic-booking/internal/doctor"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

// fakeApptRepo is an in-memory Repository with a mutex-guarded slot table so
// concurrent Book calls exercise the claim semantics for real.
type fakeApptRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	slots        map[uuid.UUID]*schedule.Slot // slot ID -> slot
	slotIndex    map[string]uuid.UUID         // scheduleID:start -> slot ID
	events       []EventLog
	history      []RescheduleEntry
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		appointments: make(map[uuid.UUID]*Appointment),
		slots:        make(map[uuid.UUID]*schedule.Slot),
		slotIndex:    make(map[string]uuid.UUID),
	}
}

func (f *fakeApptRepo) addSlot(scheduleID uuid.UUID, start, end string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.slots[id] = &schedule.Slot{
		ID:         id,
		ScheduleID: scheduleID,
		StartTime:  start,
		EndTime:    end,
		Status:     schedule.SlotAvailable,
	}
	f.slotIndex[scheduleID.String()+":"+start] = id
	return id
}

func (f *fakeApptRepo) ClaimSlotAndCreate(_ context.Context, p ClaimParams) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slotID, ok := f.slotIndex[p.ScheduleID.String()+":"+p.SlotStart]
	if !ok {
		return nil, ErrSlotNotFound
	}
	slot := f.slots[slotID]
	if slot.Status != schedule.SlotAvailable {
		return nil, ErrSlotAlreadyBooked
	}

	apptID := uuid.New()
	slot.Status = schedule.SlotBooked
	slot.IsBooked = true
	slot.PatientID = &p.PatientID
	slot.AppointmentID = &apptID

	schedID := p.ScheduleID
	appt := &Appointment{
		ID:         apptID,
		PatientID:  p.PatientID,
		DoctorID:   p.DoctorID,
		Date:       p.Date,
		Time:       p.SlotStart,
		TimeSlot:   p.TimeSlot,
		Duration:   p.Duration,
		Reason:     p.Reason,
		Type:       p.Type,
		Status:     StatusScheduled,
		ScheduleID: &schedID,
		SlotID:     &slotID,
	}
	f.appointments[apptID] = appt
	return appt, nil
}

func (f *fakeApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (f *fakeApptRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	appt, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Appointment: *appt}, nil
}

func (f *fakeApptRepo) ListByPatient(_ context.Context, patientID uuid.UUID, status Status, fromDay *time.Time) ([]Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Detail
	for _, a := range f.appointments {
		if a.PatientID != patientID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if fromDay != nil && schedule.BeforeDay(a.Date, *fromDay) {
			continue
		}
		out = append(out, Detail{Appointment: *a})
	}
	return out, nil
}

func (f *fakeApptRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, day *time.Time, status Status) ([]Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Detail
	for _, a := range f.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if day != nil && !schedule.SameDay(a.Date, *day) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, Detail{Appointment: *a})
	}
	return out, nil
}

func (f *fakeApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appointments[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	cp := *appt
	return &cp, nil
}

func (f *fakeApptRepo) CancelAndRelease(_ context.Context, id uuid.UUID, expect Status, reason, by string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appointments[id]
	if !ok || appt.Status != expect {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	appt.CancellationReason = &reason
	appt.CancelledBy = &by
	if appt.SlotID != nil {
		if slot, ok := f.slots[*appt.SlotID]; ok && slot.AppointmentID != nil && *slot.AppointmentID == id {
			slot.Status = schedule.SlotAvailable
			slot.IsBooked = false
			slot.PatientID = nil
			slot.AppointmentID = nil
		}
	}
	cp := *appt
	return &cp, nil
}

func (f *fakeApptRepo) RescheduleAndReclaim(_ context.Context, p RescheduleParams, expect Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appointments[p.AppointmentID]
	if !ok || appt.Status != expect {
		return nil, ErrAppointmentNotFound
	}

	newSlotID, ok := f.slotIndex[p.NewScheduleID.String()+":"+p.NewSlotStart]
	if !ok {
		return nil, ErrSlotNotFound
	}
	newSlot := f.slots[newSlotID]
	if newSlot.Status != schedule.SlotAvailable {
		// New slot lost; the original claim must stay intact.
		return nil, ErrSlotAlreadyBooked
	}

	f.history = append(f.history, RescheduleEntry{
		AppointmentID: appt.ID,
		OldDate:       appt.Date,
		OldTime:       appt.TimeSlot,
		NewDate:       p.NewDate,
		NewTime:       p.NewTimeSlot,
		Reason:        p.Reason,
	})

	newSlot.Status = schedule.SlotBooked
	newSlot.IsBooked = true
	newSlot.PatientID = &appt.PatientID
	apptID := appt.ID
	newSlot.AppointmentID = &apptID

	if p.OldSlotID != nil && *p.OldSlotID != newSlotID {
		if old, ok := f.slots[*p.OldSlotID]; ok {
			old.Status = schedule.SlotAvailable
			old.IsBooked = false
			old.PatientID = nil
			old.AppointmentID = nil
		}
	}

	appt.Status = StatusRescheduled
	appt.Date = p.NewDate
	appt.Time = p.NewSlotStart
	appt.TimeSlot = p.NewTimeSlot
	schedID := p.NewScheduleID
	appt.ScheduleID = &schedID
	appt.SlotID = &newSlotID
	cp := *appt
	return &cp, nil
}

func (f *fakeApptRepo) ListRescheduleHistory(_ context.Context, id uuid.UUID) ([]RescheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RescheduleEntry
	for _, e := range f.history {
		if e.AppointmentID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeApptRepo) MarkNoShowsBefore(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var flipped []Appointment
	for _, a := range f.appointments {
		if (a.Status == StatusScheduled || a.Status == StatusRescheduled) && schedule.BeforeDay(a.Date, cutoff) {
			a.Status = StatusNoShow
			flipped = append(flipped, *a)
		}
	}
	return flipped, nil
}

func (f *fakeApptRepo) InsertEvent(_ context.Context, ev EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeApptRepo) slotStatus(id uuid.UUID) schedule.SlotStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[id].Status
}

// fakeScheduleRepo serves GetForDay from a fixed map; the other methods are
// unused by the booking engine.
type fakeScheduleRepo struct {
	schedules map[string]*schedule.Schedule // doctorID:day -> schedule
}

func schedKey(doctorID uuid.UUID, day time.Time) string {
	return doctorID.String() + ":" + schedule.DayString(day)
}

func (f *fakeScheduleRepo) GetForDay(_ context.Context, doctorID uuid.UUID, day time.Time, activeOnly bool) (*schedule.Schedule, error) {
	s, ok := f.schedules[schedKey(doctorID, day)]
	if !ok || (activeOnly && !s.IsActive) {
		return nil, schedule.ErrScheduleNotFound
	}
	return s, nil
}

func (f *fakeScheduleRepo) Upsert(context.Context, uuid.UUID, time.Time, schedule.Window, int, []schedule.Slot) (*schedule.Schedule, error) {
	panic("not used")
}
func (f *fakeScheduleRepo) ListActiveForDay(context.Context, time.Time) ([]schedule.Schedule, error) {
	panic("not used")
}
func (f *fakeScheduleRepo) ListUpcoming(context.Context, uuid.UUID, time.Time) ([]schedule.Schedule, error) {
	panic("not used")
}
func (f *fakeScheduleRepo) ListHistory(context.Context, uuid.UUID, int, int) ([]schedule.Schedule, int, error) {
	panic("not used")
}
func (f *fakeScheduleRepo) DeleteForDay(context.Context, uuid.UUID, time.Time) error {
	panic("not used")
}
func (f *fakeScheduleRepo) ListForDays(context.Context, uuid.UUID, []time.Time) ([]schedule.Schedule, error) {
	panic("not used")
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (f *fakeDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDoctorRepo) GetVerifiedDoctor(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok || d.UserType != doctor.UserTypeDoctor || !d.Verified {
		return nil, doctor.ErrDoctorNotFound
	}
	return d, nil
}

// fakeLocker serializes sections per key, mirroring the Redis lock without a
// server.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[string]*sync.Mutex)}
}

func (f *fakeLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	m, ok := f.locks[key]
	if !ok {
		m = &sync.Mutex{}
		f.locks[key] = m
	}
	f.mu.Unlock()
	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type bookingFixture struct {
	svc       *Service
	repo      *fakeApptRepo
	doctorID  uuid.UUID
	patientID uuid.UUID
	schedID   uuid.UUID
	slotID    uuid.UUID
	today     time.Time
}

// newBookingFixture wires a doctor who is online today with one schedule
// holding a single 09:00-09:30 slot on the given day.
func newBookingFixture(t *testing.T, day time.Time, online bool) *bookingFixture {
	t.Helper()

	doctorID := uuid.New()
	patientID := uuid.New()
	schedID := uuid.New()

	repo := newFakeApptRepo()
	slotID := repo.addSlot(schedID, "09:00", "09:30")

	sched := &schedule.Schedule{
		ID:           schedID,
		DoctorID:     doctorID,
		Date:         schedule.NormalizeDay(day),
		StartTime:    "09:00",
		EndTime:      "12:00",
		SlotDuration: 30,
		IsActive:     true,
		Slots: []schedule.Slot{
			{ID: slotID, ScheduleID: schedID, StartTime: "09:00", EndTime: "09:30", Status: schedule.SlotAvailable},
		},
	}

	doctors := &fakeDoctorRepo{doctors: map[uuid.UUID]*doctor.Doctor{
		doctorID: {ID: doctorID, UserType: doctor.UserTypeDoctor, IsActive: online, Verified: true},
		patientID: {ID: patientID, UserType: doctor.UserTypePatient, IsActive: true},
	}}

	schedules := &fakeScheduleRepo{schedules: map[string]*schedule.Schedule{
		schedKey(doctorID, day): sched,
	}}

	svc := NewService(repo, schedules, doctors, newFakeLocker(), logging.Default())
	today := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return today }

	return &bookingFixture{
		svc:       svc,
		repo:      repo,
		doctorID:  doctorID,
		patientID: patientID,
		schedID:   schedID,
		slotID:    slotID,
		today:     today,
	}
}

func TestBookSuccess(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, detail.Status)
	assert.Equal(t, "09:00-09:30", detail.TimeSlot)
	assert.Equal(t, 30, detail.Duration)
	assert.Equal(t, schedule.SlotBooked, fx.repo.slotStatus(fx.slotID))
	require.Len(t, fx.repo.events, 1)
	assert.Equal(t, EventAppointmentBooked, fx.repo.events[0].EventType)
}

func TestBookAcceptsTimeRange(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00-09:30",
		Reason:    "checkup",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", detail.Time)
}

func TestBookOfflineDoctorSameDay(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, false)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, ErrDoctorOffline)
}

func TestBookOfflineDoctorFutureDayOK(t *testing.T) {
	day := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, false)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-15",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, detail.Status)
}

func TestBookPastDate(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-10",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, schedule.ErrPastDate)
}

func TestBookNoScheduleForDate(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-12",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, ErrNoScheduleForDate)
}

func TestBookUnknownDoctor(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  uuid.New(),
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookPatientAsDoctor(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.patientID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, ErrNotADoctor)
}

func TestBookMissingReason(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "   ",
	})
	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestBookUnknownSlotStart(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "10:00",
		Reason:    "checkup",
	})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookSlotTwice(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	p := BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	}
	_, err := fx.svc.Book(context.Background(), p)
	require.NoError(t, err)

	_, err = fx.svc.Book(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Book(context.Background(), BookParams{
				DoctorID:  fx.doctorID,
				PatientID: uuid.New(),
				Date:      "2025-10-11",
				Time:      "09:00",
				Reason:    "checkup",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotAlreadyBooked) || errors.Is(err, ErrSlotBeingBooked):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, losses)
}

func TestCancelReleasesSlot(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	updated, err := fx.svc.Cancel(context.Background(), detail.ID, "patient request", fx.patientID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
	assert.Equal(t, schedule.SlotAvailable, fx.repo.slotStatus(fx.slotID))

	// Slot is free again for someone else.
	_, err = fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: uuid.New(),
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	assert.NoError(t, err)
}

func TestCancelPathsShareDefaultReason(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	// Cancelling through the status endpoint carries no reason; it must
	// persist the same default the dedicated cancel path uses.
	viaStatus, err := fx.svc.UpdateStatus(context.Background(), detail.ID, StatusCancelled, fx.patientID)
	require.NoError(t, err)
	require.NotNil(t, viaStatus.CancellationReason)

	second, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)
	viaCancel, err := fx.svc.Cancel(context.Background(), second.ID, "", fx.patientID)
	require.NoError(t, err)
	require.NotNil(t, viaCancel.CancellationReason)

	assert.Equal(t, *viaCancel.CancellationReason, *viaStatus.CancellationReason)
	assert.Equal(t, "No reason provided", *viaStatus.CancellationReason)
}

func TestCancelByStranger(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), detail.ID, "", uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelTerminalAppointment(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	_, err = fx.svc.UpdateStatus(context.Background(), detail.ID, StatusCompleted, fx.doctorID)
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), detail.ID, "", fx.patientID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusTransitions(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	updated, err := fx.svc.UpdateStatus(context.Background(), detail.ID, StatusConfirmed, fx.doctorID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)

	// rescheduled is not a direct target here
	_, err = fx.svc.UpdateStatus(context.Background(), detail.ID, StatusRescheduled, fx.doctorID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// confirmed cannot go back to scheduled
	_, err = fx.svc.UpdateStatus(context.Background(), detail.ID, StatusScheduled, fx.doctorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRescheduleMovesClaim(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)
	secondSlotID := fx.repo.addSlot(fx.schedID, "09:30", "10:00")

	// Extend the fixture schedule with the second slot so SlotByStart finds it.
	schedRepo := fx.svc.schedules.(*fakeScheduleRepo)
	s := schedRepo.schedules[schedKey(fx.doctorID, day)]
	s.Slots = append(s.Slots, schedule.Slot{
		ID: secondSlotID, ScheduleID: fx.schedID, StartTime: "09:30", EndTime: "10:00", Status: schedule.SlotAvailable,
	})

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	moved, err := fx.svc.Reschedule(context.Background(), detail.ID, "2025-10-11", "09:30", "conflict", fx.patientID)
	require.NoError(t, err)

	assert.Equal(t, StatusRescheduled, moved.Status)
	assert.Equal(t, "09:30-10:00", moved.TimeSlot)
	assert.Equal(t, schedule.SlotAvailable, fx.repo.slotStatus(fx.slotID))
	assert.Equal(t, schedule.SlotBooked, fx.repo.slotStatus(secondSlotID))

	history, err := fx.repo.ListRescheduleHistory(context.Background(), detail.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "09:00-09:30", history[0].OldTime)
	assert.Equal(t, "09:30-10:00", history[0].NewTime)
}

func TestRescheduleToTakenSlotKeepsOldClaim(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)
	secondSlotID := fx.repo.addSlot(fx.schedID, "09:30", "10:00")

	schedRepo := fx.svc.schedules.(*fakeScheduleRepo)
	s := schedRepo.schedules[schedKey(fx.doctorID, day)]
	s.Slots = append(s.Slots, schedule.Slot{
		ID: secondSlotID, ScheduleID: fx.schedID, StartTime: "09:30", EndTime: "10:00", Status: schedule.SlotAvailable,
	})

	// Another patient takes the second slot first.
	_, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: uuid.New(),
		Date:      "2025-10-11",
		Time:      "09:30",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	_, err = fx.svc.Reschedule(context.Background(), detail.ID, "2025-10-11", "09:30", "", fx.patientID)
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)

	// Original claim intact.
	assert.Equal(t, schedule.SlotBooked, fx.repo.slotStatus(fx.slotID))
	current, err := fx.repo.GetByID(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, current.Status)
	assert.Equal(t, "09:00-09:30", current.TimeSlot)
}

func TestMarkNoShows(t *testing.T) {
	day := time.Date(2025, 10, 11, 12, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, day, true)

	detail, err := fx.svc.Book(context.Background(), BookParams{
		DoctorID:  fx.doctorID,
		PatientID: fx.patientID,
		Date:      "2025-10-11",
		Time:      "09:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	// Advance the clock two days; yesterday's live appointment is a no-show.
	fx.svc.now = func() time.Time {
		return time.Date(2025, 10, 13, 12, 0, 0, 0, time.UTC)
	}

	n, err := fx.svc.MarkNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	current, err := fx.repo.GetByID(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, current.Status)
}
