package scheduling_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/domain/srs"
	"github.com/phrazzld/cadence/internal/platform/memory"
	"github.com/phrazzld/cadence/internal/service/scheduling"
	"github.com/phrazzld/cadence/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable time source safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// MockTierResolver is a mock implementation of the TierResolver interface
type MockTierResolver struct {
	mock.Mock
}

func (m *MockTierResolver) GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Tier), args.Error(1)
}

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	tiers    *MockTierResolver
	recorder *scheduling.Recorder
	engine   scheduling.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	clock := &fakeClock{now: t0}
	tiers := &MockTierResolver{}
	recorder := scheduling.NewRecorder(st.History(), clock.Now, logger)
	engine := scheduling.NewEngine(st, st.Schedules(), recorder, srs.NewDefaultService(), tiers, logger,
		scheduling.WithClock(clock.Now))
	return &harness{store: st, clock: clock, tiers: tiers, recorder: recorder, engine: engine}
}

func (h *harness) withTier(userID uuid.UUID, tier domain.Tier) {
	h.tiers.On("GetTier", mock.Anything, userID).Return(tier, nil)
}

// forceIndex moves a stored schedule to index, as if earlier reviews had happened.
func (h *harness) forceIndex(t *testing.T, s *domain.Schedule, index int) *domain.Schedule {
	t.Helper()
	next := s.Clone()
	next.IntervalIndex = index
	next.Version = s.Version + 1
	next.InitialReviewCompleted = true
	require.NoError(t, h.store.Schedules().Update(context.Background(), next, s.Version))
	return next
}

func (h *harness) history(t *testing.T, userID uuid.UUID) []domain.HistoryRecord {
	t.Helper()
	records, err := h.recorder.History(context.Background(), store.HistoryFilter{UserID: userID})
	require.NoError(t, err)
	return records
}

func remembered(s *domain.Schedule) scheduling.Submission {
	return scheduling.Submission{
		ScheduleID: s.ID,
		UserID:     s.UserID,
		Outcome:    domain.ReviewOutcomeRemembered,
	}
}

func TestCreateScheduleIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()

	first, created, err := h.engine.CreateSchedule(ctx, userID, itemID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, first.IntervalIndex)
	assert.True(t, first.IsActive)
	assert.False(t, first.InitialReviewCompleted)
	assert.Equal(t, t0, first.NextReviewAt)

	second, created, err := h.engine.CreateSchedule(ctx, userID, itemID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, _, err = h.engine.CreateSchedule(ctx, uuid.Nil, itemID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateScheduleConcurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID, itemID := uuid.New(), uuid.New()

	const callers = 10
	ids := make([]uuid.UUID, callers)
	var createdCount int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, created, err := h.engine.CreateSchedule(ctx, userID, itemID)
			assert.NoError(t, err)
			ids[i] = s.ID
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestScenarioA_FreeTierSaturates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierFree)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)

	due, err := h.engine.DueSchedules(ctx, userID, t0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, s.ID, due[0].ID)

	res, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 3), res.Schedule.NextReviewAt)
	assert.True(t, res.Schedule.InitialReviewCompleted)

	h.clock.Set(res.Schedule.NextReviewAt)
	res, err = h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 10), res.Schedule.NextReviewAt)

	third := res.Schedule.NextReviewAt
	h.clock.Set(third)
	res, err = h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Schedule.IntervalIndex)
	assert.Equal(t, third.AddDate(0, 0, 7), res.Schedule.NextReviewAt)

	assert.Len(t, h.history(t, userID), 3)
}

func TestScenarioB_ProForgottenResets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierPro)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	h.forceIndex(t, s, 6)

	res, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
		ScheduleID: s.ID,
		UserID:     userID,
		Outcome:    domain.ReviewOutcomeForgotten,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 1), res.Schedule.NextReviewAt)
}

func TestScenarioC_DowngradeClamps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierBasic)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	h.forceIndex(t, s, 4)

	res, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 30), res.Schedule.NextReviewAt)
}

func TestScenarioD_ConcurrentSubmissionsAdvanceOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierFree)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)

	results := make([]*scheduling.ReviewResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.engine.ApplyOutcome(ctx, remembered(s))
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	stored, err := h.store.Schedules().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.IntervalIndex)
	assert.Equal(t, 2, stored.Version)
	assert.Len(t, h.history(t, userID), 2)
}

func TestApplyOutcomePartialHolds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierPremium)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	forced := h.forceIndex(t, s, 3)

	spent := 25
	res, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
		ScheduleID:       s.ID,
		UserID:           userID,
		Outcome:          domain.ReviewOutcomePartial,
		TimeSpentSeconds: &spent,
		Notes:            "almost",
	})
	require.NoError(t, err)
	assert.Equal(t, forced.IntervalIndex, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 14), res.Schedule.NextReviewAt)
	require.NotNil(t, res.Record.TimeSpentSeconds)
	assert.Equal(t, 25, *res.Record.TimeSpentSeconds)
	assert.Equal(t, "almost", res.Record.Notes)
	assert.Equal(t, domain.ReviewOutcomePartial, res.Record.Outcome)
}

func TestApplyOutcomeNotDueRecordsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierFree)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	first, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)

	h.clock.Set(t0.Add(time.Hour))
	second, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Schedule.Version, second.Schedule.Version)
	assert.Equal(t, first.Schedule.NextReviewAt, second.Schedule.NextReviewAt)
	assert.Len(t, h.history(t, userID), 2)
}

func TestApplyOutcomeForgottenResetsBeforeDue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierPro)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	first, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	require.Equal(t, 1, first.Schedule.IntervalIndex)
	require.Equal(t, t0.AddDate(0, 0, 3), first.Schedule.NextReviewAt)

	later := t0.AddDate(0, 0, 1)
	h.clock.Set(later)
	res, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
		ScheduleID: s.ID,
		UserID:     userID,
		Outcome:    domain.ReviewOutcomeForgotten,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 0, res.Schedule.IntervalIndex)
	assert.Equal(t, later.AddDate(0, 0, 1), res.Schedule.NextReviewAt)

	stored, err := h.store.Schedules().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.IntervalIndex)
	assert.Equal(t, first.Schedule.Version+1, stored.Version)
}

func TestApplyOutcomePartialHoldsBeforeDue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierPro)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	_, err = h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)

	later := t0.AddDate(0, 0, 1)
	h.clock.Set(later)
	res, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
		ScheduleID: s.ID,
		UserID:     userID,
		Outcome:    domain.ReviewOutcomePartial,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Schedule.IntervalIndex)
	assert.Equal(t, later.AddDate(0, 0, 3), res.Schedule.NextReviewAt)
	assert.Len(t, h.history(t, userID), 2)
}

// blockingResolver holds GetTier for one user until released.
type blockingResolver struct {
	slowUser uuid.UUID
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
}

func newBlockingResolver(slowUser uuid.UUID) *blockingResolver {
	return &blockingResolver{
		slowUser: slowUser,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (r *blockingResolver) GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	if userID == r.slowUser {
		close(r.entered)
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return domain.TierFree, nil
}

func (r *blockingResolver) Release() {
	r.once.Do(func() { close(r.release) })
}

func TestApplyOutcomeSlowTierLookupDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	clock := &fakeClock{now: t0}
	slowUser, fastUser := uuid.New(), uuid.New()
	resolver := newBlockingResolver(slowUser)
	t.Cleanup(resolver.Release)

	recorder := scheduling.NewRecorder(st.History(), clock.Now, logger)
	engine := scheduling.NewEngine(st, st.Schedules(), recorder, srs.NewDefaultService(), resolver, logger,
		scheduling.WithClock(clock.Now))

	slowSchedule, _, err := engine.CreateSchedule(ctx, slowUser, uuid.New())
	require.NoError(t, err)
	fastSchedule, _, err := engine.CreateSchedule(ctx, fastUser, uuid.New())
	require.NoError(t, err)

	slowDone := make(chan error, 1)
	go func() {
		_, err := engine.ApplyOutcome(ctx, remembered(slowSchedule))
		slowDone <- err
	}()
	<-resolver.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := engine.ApplyOutcome(ctx, remembered(fastSchedule))
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submission waited on another user's tier lookup")
	}

	resolver.Release()
	require.NoError(t, <-slowDone)

	stored, err := st.Schedules().GetByID(ctx, slowSchedule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.IntervalIndex)
}

func TestApplyOutcomeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid outcome", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
			ScheduleID: uuid.New(), UserID: uuid.New(), Outcome: "easy",
		})
		assert.ErrorIs(t, err, scheduling.ErrInvalidOutcome)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("negative time spent", func(t *testing.T) {
		h := newHarness(t)
		spent := -1
		_, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
			ScheduleID: uuid.New(), UserID: uuid.New(),
			Outcome: domain.ReviewOutcomeRemembered, TimeSpentSeconds: &spent,
		})
		assert.ErrorIs(t, err, scheduling.ErrNegativeTimeSpent)
	})

	t.Run("schedule not found", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine.ApplyOutcome(ctx, scheduling.Submission{
			ScheduleID: uuid.New(), UserID: uuid.New(), Outcome: domain.ReviewOutcomeRemembered,
		})
		assert.ErrorIs(t, err, scheduling.ErrScheduleNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("schedule not owned", func(t *testing.T) {
		h := newHarness(t)
		s, _, err := h.engine.CreateSchedule(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)

		sub := remembered(s)
		sub.UserID = uuid.New()
		_, err = h.engine.ApplyOutcome(ctx, sub)
		assert.ErrorIs(t, err, scheduling.ErrScheduleNotOwned)
		assert.Empty(t, h.history(t, s.UserID))
	})

	t.Run("inactive schedule", func(t *testing.T) {
		h := newHarness(t)
		s, _, err := h.engine.CreateSchedule(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		_, err = h.engine.DeactivateItem(ctx, s.ItemID)
		require.NoError(t, err)

		_, err = h.engine.ApplyOutcome(ctx, remembered(s))
		assert.ErrorIs(t, err, scheduling.ErrScheduleInactive)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestApplyOutcomeTierFailureLeavesScheduleUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	lookupErr := errors.New("billing unavailable")
	h.tiers.On("GetTier", mock.Anything, userID).Return(domain.Tier(""), lookupErr)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)

	_, err = h.engine.ApplyOutcome(ctx, remembered(s))
	require.Error(t, err)
	assert.ErrorIs(t, err, lookupErr)
	var serviceErr *scheduling.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "apply_outcome", serviceErr.Operation)

	stored, err := h.store.Schedules().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, stored)
	assert.Empty(t, h.history(t, userID))
}

func TestApplyOutcomeUnknownTierUsesFree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.Tier("gold"))

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)
	h.forceIndex(t, s, 5)

	res, err := h.engine.ApplyOutcome(ctx, remembered(s))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Schedule.IntervalIndex)
	assert.Equal(t, t0.AddDate(0, 0, 7), res.Schedule.NextReviewAt)
}

func TestApplyOutcomeIsAtomic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()
	h.withTier(userID, domain.TierFree)

	s, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
	require.NoError(t, err)

	h.store.FailCommitWith(func() error { return errors.New("commit lost") })
	_, err = h.engine.ApplyOutcome(ctx, remembered(s))
	assert.ErrorIs(t, err, store.ErrTransactionFailed)

	stored, err := h.store.Schedules().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.IntervalIndex)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, h.history(t, userID))
}

func TestDueSchedulesPage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := uuid.New()

	for n := 0; n < 5; n++ {
		_, _, err := h.engine.CreateSchedule(ctx, userID, uuid.New())
		require.NoError(t, err)
	}

	all, err := h.engine.DueSchedules(ctx, userID, t0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ItemID.String(), all[i].ItemID.String(), "ties break on item_id")
	}

	page, err := h.engine.DueSchedulesPage(ctx, userID, t0, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[2].ID, page[0].ID)
	assert.Equal(t, all[3].ID, page[1].ID)

	_, err = h.engine.DueSchedulesPage(ctx, userID, t0, -1, 0)
	assert.ErrorIs(t, err, scheduling.ErrInvalidPage)

	none, err := h.engine.DueSchedules(ctx, userID, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeactivateItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	itemID := uuid.New()
	userA, userB := uuid.New(), uuid.New()

	_, _, err := h.engine.CreateSchedule(ctx, userA, itemID)
	require.NoError(t, err)
	_, _, err = h.engine.CreateSchedule(ctx, userB, itemID)
	require.NoError(t, err)

	n, err := h.engine.DeactivateItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.engine.DeactivateItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	due, err := h.engine.DueSchedules(ctx, userA, t0)
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = h.engine.DeactivateItem(ctx, uuid.New())
	assert.ErrorIs(t, err, scheduling.ErrItemNotFound)
}
