// Package memory provides an in-process implementation of the schedule and
// history stores. Transactions are serialized and writes are staged until the
// callback succeeds, so a failed transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/store"
)

type pairKey struct {
	userID uuid.UUID
	itemID uuid.UUID
}

// state holds the committed data. It is only touched with Store.mu held.
type state struct {
	schedules map[uuid.UUID]*domain.Schedule
	byPair    map[pairKey]uuid.UUID
	history   []domain.HistoryRecord
}

func newState() *state {
	return &state{
		schedules: make(map[uuid.UUID]*domain.Schedule),
		byPair:    make(map[pairKey]uuid.UUID),
	}
}

func (s *state) clone() *state {
	c := &state{
		schedules: make(map[uuid.UUID]*domain.Schedule, len(s.schedules)),
		byPair:    make(map[pairKey]uuid.UUID, len(s.byPair)),
		history:   append([]domain.HistoryRecord(nil), s.history...),
	}
	for id, sch := range s.schedules {
		c.schedules[id] = sch.Clone()
	}
	for k, v := range s.byPair {
		c.byPair[k] = v
	}
	return c
}

// Store is a thread-safe in-memory store. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state *state

	// failCommit, when set, is consulted before a transaction commits.
	failCommit func() error
}

// New creates an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

var _ store.Transactor = (*Store)(nil)

// Schedules returns a ScheduleStore that operates outside any transaction.
func (s *Store) Schedules() store.ScheduleStore {
	return &scheduleView{store: s}
}

// History returns a HistoryStore that operates outside any transaction.
func (s *Store) History() store.HistoryStore {
	return &historyView{store: s}
}

// FailCommitWith makes every following transaction fail at commit time with
// the error returned by fn. Pass nil to restore normal commits.
func (s *Store) FailCommitWith(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = fn
}

// WithinTx implements store.Transactor.WithinTx. Transactions run one at a
// time against a private copy of the data that replaces the committed state
// only when fn returns nil.
func (s *Store) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, schedules store.ScheduleStore, history store.HistoryStore) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	tx := &txView{state: staged}
	if err := fn(ctx, &txScheduleStore{tx}, &txHistoryStore{tx}); err != nil {
		return err
	}

	if s.failCommit != nil {
		if err := s.failCommit(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
		}
	}

	s.state = staged
	return nil
}

// scheduleView and historyView take the lock for each call. They are what
// non-transactional callers see.
type scheduleView struct{ store *Store }

func (v *scheduleView) with(fn func(ops scheduleOps) error) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(scheduleOps{v.store.state})
}

func (v *scheduleView) Create(ctx context.Context, schedule *domain.Schedule) error {
	return v.with(func(ops scheduleOps) error { return ops.create(schedule) })
}

func (v *scheduleView) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	var out *domain.Schedule
	err := v.with(func(ops scheduleOps) (err error) { out, err = ops.get(id); return err })
	return out, err
}

func (v *scheduleView) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return v.GetByID(ctx, id)
}

func (v *scheduleView) GetByUserAndItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.Schedule, error) {
	var out *domain.Schedule
	err := v.with(func(ops scheduleOps) (err error) {
		out, err = ops.getByPair(userID, itemID)
		return err
	})
	return out, err
}

func (v *scheduleView) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.Schedule, error) {
	var out []*domain.Schedule
	err := v.with(func(ops scheduleOps) error { out = ops.listByItem(itemID); return nil })
	return out, err
}

func (v *scheduleView) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit, offset int,
) ([]*domain.Schedule, error) {
	var out []*domain.Schedule
	err := v.with(func(ops scheduleOps) error {
		out = ops.listDue(userID, now, limit, offset)
		return nil
	})
	return out, err
}

func (v *scheduleView) Update(ctx context.Context, schedule *domain.Schedule, expectedVersion int) error {
	return v.with(func(ops scheduleOps) error { return ops.update(schedule, expectedVersion) })
}

type historyView struct{ store *Store }

func (v *historyView) Append(ctx context.Context, record *domain.HistoryRecord) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return historyOps{v.store.state}.append(record)
}

func (v *historyView) List(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return historyOps{v.store.state}.list(filter), nil
}

// txView gives the transactional stores access to the staged state.
// The Store lock is already held by WithinTx.
type txView struct{ state *state }

type txScheduleStore struct{ tx *txView }

func (s *txScheduleStore) Create(ctx context.Context, schedule *domain.Schedule) error {
	return scheduleOps{s.tx.state}.create(schedule)
}

func (s *txScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return scheduleOps{s.tx.state}.get(id)
}

func (s *txScheduleStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return scheduleOps{s.tx.state}.get(id)
}

func (s *txScheduleStore) GetByUserAndItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.Schedule, error) {
	return scheduleOps{s.tx.state}.getByPair(userID, itemID)
}

func (s *txScheduleStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.Schedule, error) {
	return scheduleOps{s.tx.state}.listByItem(itemID), nil
}

func (s *txScheduleStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit, offset int,
) ([]*domain.Schedule, error) {
	return scheduleOps{s.tx.state}.listDue(userID, now, limit, offset), nil
}

func (s *txScheduleStore) Update(ctx context.Context, schedule *domain.Schedule, expectedVersion int) error {
	return scheduleOps{s.tx.state}.update(schedule, expectedVersion)
}

type txHistoryStore struct{ tx *txView }

func (s *txHistoryStore) Append(ctx context.Context, record *domain.HistoryRecord) error {
	return historyOps{s.tx.state}.append(record)
}

func (s *txHistoryStore) List(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error) {
	return historyOps{s.tx.state}.list(filter), nil
}

var (
	_ store.ScheduleStore = (*scheduleView)(nil)
	_ store.ScheduleStore = (*txScheduleStore)(nil)
	_ store.HistoryStore  = (*historyView)(nil)
	_ store.HistoryStore  = (*txHistoryStore)(nil)
)

// scheduleOps implements the schedule operations over a state. Callers hold the lock.
type scheduleOps struct{ st *state }

func (o scheduleOps) create(schedule *domain.Schedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	key := pairKey{schedule.UserID, schedule.ItemID}
	if _, ok := o.st.byPair[key]; ok {
		return store.ErrScheduleExists
	}
	if _, ok := o.st.schedules[schedule.ID]; ok {
		return fmt.Errorf("%w: schedule id %s", store.ErrDuplicate, schedule.ID)
	}
	o.st.schedules[schedule.ID] = schedule.Clone()
	o.st.byPair[key] = schedule.ID
	return nil
}

func (o scheduleOps) get(id uuid.UUID) (*domain.Schedule, error) {
	sch, ok := o.st.schedules[id]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	return sch.Clone(), nil
}

func (o scheduleOps) getByPair(userID, itemID uuid.UUID) (*domain.Schedule, error) {
	id, ok := o.st.byPair[pairKey{userID, itemID}]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	return o.get(id)
}

func (o scheduleOps) listByItem(itemID uuid.UUID) []*domain.Schedule {
	out := []*domain.Schedule{}
	for _, sch := range o.st.schedules {
		if sch.ItemID == itemID {
			out = append(out, sch.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (o scheduleOps) listDue(userID uuid.UUID, now time.Time, limit, offset int) []*domain.Schedule {
	out := []*domain.Schedule{}
	for _, sch := range o.st.schedules {
		if sch.UserID == userID && sch.IsDue(now) {
			out = append(out, sch.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextReviewAt.Equal(out[j].NextReviewAt) {
			return out[i].NextReviewAt.Before(out[j].NextReviewAt)
		}
		return out[i].ItemID.String() < out[j].ItemID.String()
	})

	if offset > 0 {
		if offset >= len(out) {
			return []*domain.Schedule{}
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (o scheduleOps) update(schedule *domain.Schedule, expectedVersion int) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	current, ok := o.st.schedules[schedule.ID]
	if !ok {
		return store.ErrScheduleNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: schedule %s at version %d, expected %d",
			store.ErrConflict, schedule.ID, current.Version, expectedVersion)
	}
	o.st.schedules[schedule.ID] = schedule.Clone()
	return nil
}

type historyOps struct{ st *state }

func (o historyOps) append(record *domain.HistoryRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, ok := o.st.schedules[record.ScheduleID]; !ok {
		return fmt.Errorf("%w: unknown schedule %s", store.ErrInvalidEntity, record.ScheduleID)
	}
	o.st.history = append(o.st.history, *record)
	return nil
}

func (o historyOps) list(filter store.HistoryFilter) []domain.HistoryRecord {
	out := []domain.HistoryRecord{}
	for i := range o.st.history {
		if filter.Matches(&o.st.history[i]) {
			out = append(out, o.st.history[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}
