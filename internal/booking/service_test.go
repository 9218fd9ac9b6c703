package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brisahealth/clinic-scheduling/internal/schedule"
)

// memRepo is an in-memory Repository whose CreateAppointment and
// MoveAppointmentSlot enforce the active-appointment-per-slot invariant under
// a mutex, the way the partial unique index does in Postgres.
type memRepo struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]*Patient
	appointments map[uuid.UUID]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:     make(map[uuid.UUID]*Patient),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *memRepo) addPatient() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.patients[id] = &Patient{ID: id, Name: "Test Patient"}
	return id
}

func (m *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (m *memRepo) GetActiveAppointmentForSlot(_ context.Context, slotID uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeForSlotLocked(slotID)
}

func (m *memRepo) activeForSlotLocked(slotID uuid.UUID) (*Appointment, error) {
	for _, a := range m.appointments {
		if a.SlotID == slotID && IsActive(a.Status) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) CreateAppointment(_ context.Context, patientID, slotID uuid.UUID, reason *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, _ := m.activeForSlotLocked(slotID); existing != nil {
		return nil, ErrSlotUnavailable
	}
	now := time.Now()
	a := &Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		SlotID:    slotID,
		Status:    StatusPending,
		Reason:    reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.appointments[a.ID] = a
	out := *a
	return &out, nil
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, to Status, cancelReason *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if cancelReason != nil {
		a.CancelReason = cancelReason
	}
	a.UpdatedAt = time.Now()
	out := *a
	return &out, nil
}

func (m *memRepo) MoveAppointmentSlot(_ context.Context, id, newSlotID uuid.UUID, from []Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || !statusIn(a.Status, from) {
		return nil, ErrAppointmentNotFound
	}
	if existing, _ := m.activeForSlotLocked(newSlotID); existing != nil && existing.ID != id {
		return nil, ErrSlotUnavailable
	}
	a.SlotID = newSlotID
	a.Status = StatusPending
	a.UpdatedAt = time.Now()
	out := *a
	return &out, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// memSlotStore serves slot lookups from a fixed map.
type memSlotStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*schedule.ScheduleSlot
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{slots: make(map[uuid.UUID]*schedule.ScheduleSlot)}
}

func (m *memSlotStore) addSlot() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.slots[id] = &schedule.ScheduleSlot{
		ID:       id,
		DoctorID: uuid.New(),
		Date:     schedule.NewDate(2025, time.June, 16),
		TimeFrom: schedule.MustTimeOfDay("09:00"),
		TimeTo:   schedule.MustTimeOfDay("09:30"),
	}
	return id
}

func (m *memSlotStore) GetSlotByID(_ context.Context, id uuid.UUID) (*schedule.ScheduleSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	return s, nil
}

// blockingLocker serializes critical sections per slot with plain mutexes, so
// concurrent tests see the deterministic re-check failure instead of a lock
// acquisition conflict.
type blockingLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newBlockingLocker() *blockingLocker {
	return &blockingLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *blockingLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[slotID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[slotID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func newTestService() (*Service, *memRepo, *memSlotStore) {
	repo := newMemRepo()
	slots := newMemSlotStore()
	svc := NewService(repo, slots, newBlockingLocker(), zerolog.Nop())
	return svc, repo, slots
}

func TestCreate_BooksFreeSlot(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	slotID := slots.addSlot()

	reason := "annual check-up"
	appt, err := svc.Create(context.Background(), patientID, slotID, &reason)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, slotID, appt.SlotID)
	assert.Equal(t, patientID, appt.PatientID)
	require.NotNil(t, appt.Reason)
	assert.Equal(t, reason, *appt.Reason)
}

func TestCreate_RejectsBookedSlot(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	other := repo.addPatient()
	slotID := slots.addSlot()

	_, err := svc.Create(context.Background(), patientID, slotID, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), other, slotID, nil)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreate_UnknownPatientOrSlot(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	slotID := slots.addSlot()

	_, err := svc.Create(context.Background(), uuid.New(), slotID, nil)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.Create(context.Background(), patientID, uuid.New(), nil)
	assert.ErrorIs(t, err, schedule.ErrSlotNotFound)
}

func TestCreate_ConcurrentBookingsOneWinner(t *testing.T) {
	svc, repo, slots := newTestService()
	slotID := slots.addSlot()
	patientA := repo.addPatient()
	patientB := repo.addPatient()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, patientID := range []uuid.UUID{patientA, patientB} {
		wg.Add(1)
		go func(pid uuid.UUID) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), pid, slotID, nil)
			results <- err
		}(patientID)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrSlotUnavailable):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestLifecycle_HappyPath(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	slotID := slots.addSlot()

	appt, err := svc.Create(context.Background(), patientID, slotID, nil)
	require.NoError(t, err)

	appt, err = svc.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)

	appt, err = svc.CheckIn(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, appt.Status)

	appt, err = svc.Complete(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, appt.Status)

	// Terminal: nothing further is allowed.
	_, err = svc.Cancel(context.Background(), appt.ID, "patient changed plans")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCheckIn_AllowedFromPendingAndConfirmed(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()

	// Straight from pending.
	appt, err := svc.Create(context.Background(), patientID, slots.addSlot(), nil)
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), appt.ID)
	assert.NoError(t, err)

	// From confirmed.
	appt, err = svc.Create(context.Background(), patientID, slots.addSlot(), nil)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), appt.ID)
	assert.NoError(t, err)
}

func TestNoShow_OnlyBeforeCheckIn(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()

	appt, err := svc.Create(context.Background(), patientID, slots.addSlot(), nil)
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = svc.MarkNoShow(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancel_RequiresReason(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()

	appt, err := svc.Create(context.Background(), patientID, slots.addSlot(), nil)
	require.NoError(t, err)

	for _, reason := range []string{"", "no", "    ", " abc "} {
		_, err = svc.Cancel(context.Background(), appt.ID, reason)
		assert.ErrorIs(t, err, ErrCancelReasonTooShort)
	}

	cancelled, err := svc.Cancel(context.Background(), appt.ID, "family emergency")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "family emergency", *cancelled.CancelReason)
}

func TestCancel_ReleasesSlotForRebooking(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	other := repo.addPatient()
	slotID := slots.addSlot()

	appt, err := svc.Create(context.Background(), patientID, slotID, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), appt.ID, "scheduling conflict")
	require.NoError(t, err)

	// The vacated slot is bookable again purely because no active appointment
	// references it.
	rebooked, err := svc.Create(context.Background(), other, slotID, nil)
	require.NoError(t, err)
	assert.Equal(t, slotID, rebooked.SlotID)
}

func TestReschedule_MovesToFreeSlot(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	other := repo.addPatient()
	oldSlot := slots.addSlot()
	newSlot := slots.addSlot()

	appt, err := svc.Create(context.Background(), patientID, oldSlot, nil)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)

	moved, err := svc.Reschedule(context.Background(), appt.ID, newSlot, nil)
	require.NoError(t, err)
	assert.Equal(t, newSlot, moved.SlotID)
	assert.Equal(t, StatusPending, moved.Status)

	// The old slot is free again.
	_, err = svc.Create(context.Background(), other, oldSlot, nil)
	assert.NoError(t, err)
}

func TestReschedule_RejectsOccupiedTarget(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()
	other := repo.addPatient()
	slotA := slots.addSlot()
	slotB := slots.addSlot()

	apptA, err := svc.Create(context.Background(), patientID, slotA, nil)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), other, slotB, nil)
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), apptA.ID, slotB, nil)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestReschedule_OnlyPendingOrConfirmed(t *testing.T) {
	svc, repo, slots := newTestService()
	patientID := repo.addPatient()

	appt, err := svc.Create(context.Background(), patientID, slots.addSlot(), nil)
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), appt.ID, slots.addSlot(), nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusNoShow, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusNoShow, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusNoShow, StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.True(t, IsTerminal(s))
	}
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress} {
		assert.False(t, IsTerminal(s))
	}
}
