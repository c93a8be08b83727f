package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type memReservations struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.Reservation
	events    []string
	failSaves int
}

func newMemReservations() *memReservations {
	return &memReservations{byID: make(map[uuid.UUID]domain.Reservation)}
}

func (m *memReservations) SaveReservation(ctx context.Context, res *domain.Reservation, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves > 0 {
		m.failSaves--
		return domain.ErrSerializationFailure
	}
	m.byID[res.ID] = *res
	m.events = append(m.events, event)
	return nil
}

func (m *memReservations) ReservationByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "Reservation", Key: id.String()}
	}
	return &res, nil
}

func (m *memReservations) Reservations(ctx context.Context) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Reservation, 0, len(m.byID))
	for _, res := range m.byID {
		out = append(out, res)
	}
	return out, nil
}

func (m *memReservations) ReservationsByGuest(ctx context.Context, guestID uuid.UUID) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, res := range m.byID {
		if res.GuestID == guestID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *memReservations) ReservationsByRoomAndDateRange(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, res := range m.byID {
		if res.RoomID == roomID && res.Overlaps(checkIn, checkOut) {
			out = append(out, res)
		}
	}
	return out, nil
}

type memRooms struct {
	byID map[uuid.UUID]domain.Room
}

func (m *memRooms) RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	room, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "Room", Key: id.String()}
	}
	return &room, nil
}

type memGuests struct {
	byID map[uuid.UUID]domain.Guest
}

func (m *memGuests) GuestByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error) {
	guest, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "Guest", Key: id.String()}
	}
	return &guest, nil
}

type fixture struct {
	engine  *Engine
	store   *memReservations
	guestID uuid.UUID
	roomID  uuid.UUID
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	room := domain.Room{
		ID:            uuid.New(),
		RoomNumber:    "101",
		RoomType:      domain.RoomTypeDouble,
		PricePerNight: decimal.NewFromInt(150),
		Capacity:      2,
		IsAvailable:   true,
	}
	guest := domain.Guest{ID: uuid.New(), FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}

	store := newMemReservations()
	engine := NewEngine(
		store,
		&memRooms{byID: map[uuid.UUID]domain.Room{room.ID: room}},
		&memGuests{byID: map[uuid.UUID]domain.Guest{guest.ID: guest}},
		NewKeyedLock(),
		nil,
		observability.NewLogger(),
	)
	engine.now = func() time.Time { return date(2025, 2, 1) }

	return &fixture{engine: engine, store: store, guestID: guest.ID, roomID: room.ID}
}

func (f *fixture) request(checkIn, checkOut time.Time) CreateRequest {
	return CreateRequest{
		GuestID:    f.guestID,
		RoomID:     f.roomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestCount: 2,
		RoomCount:  1,
	}
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", res.Status)
	}
	if !res.TotalPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected total 300, got %s", res.TotalPrice)
	}
	if res.CreatedAt.IsZero() {
		t.Error("expected created timestamp to be set")
	}
}

func TestCreateReservation_DateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateReservation(ctx, f.request(date(2025, 1, 5), date(2025, 1, 5)))
	if !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for equal dates, got %v", err)
	}
	_, err = f.engine.CreateReservation(ctx, f.request(date(2025, 1, 31), date(2025, 2, 2)))
	if !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for past check-in, got %v", err)
	}
}

func TestCreateReservation_UnknownRefs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(date(2025, 3, 1), date(2025, 3, 3))
	req.GuestID = uuid.New()
	if _, err := f.engine.CreateReservation(ctx, req); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown guest, got %v", err)
	}

	req = f.request(date(2025, 3, 1), date(2025, 3, 3))
	req.RoomID = uuid.New()
	if _, err := f.engine.CreateReservation(ctx, req); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown room, got %v", err)
	}
}

// The full booking scenario: book, conflicting second attempt, confirm,
// cancel, then the second attempt succeeds because cancellation frees
// the slot.
func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if !first.TotalPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected total 300, got %s", first.TotalPrice)
	}

	_, err = f.engine.CreateReservation(ctx, f.request(date(2025, 3, 2), date(2025, 3, 4)))
	if !domain.IsNotAvailable(err) {
		t.Fatalf("expected RoomNotAvailable for overlapping booking, got %v", err)
	}

	confirmed, err := f.engine.ConfirmReservation(ctx, first.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != domain.StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", confirmed.Status)
	}

	cancelled, err := f.engine.CancelReservation(ctx, first.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	retry, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 2), date(2025, 3, 4)))
	if err != nil {
		t.Fatalf("expected retry after cancellation to succeed, got %v", err)
	}
	if retry.Status != domain.StatusPending || !retry.TotalPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("unexpected retry result: status %s, total %s", retry.Status, retry.TotalPrice)
	}
}

func TestStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.ConfirmReservation(ctx, res.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := f.engine.ConfirmReservation(ctx, res.ID); !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for double confirm, got %v", err)
	}

	if _, err := f.engine.CancelReservation(ctx, res.ID); err != nil {
		t.Fatalf("cancel of confirmed reservation failed: %v", err)
	}
	if _, err := f.engine.CancelReservation(ctx, res.ID); !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for double cancel, got %v", err)
	}
	if _, err := f.engine.ConfirmReservation(ctx, res.ID); !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for confirm after cancel, got %v", err)
	}

	if _, err := f.engine.UpdateReservation(ctx, res.ID, f.request(date(2025, 4, 1), date(2025, 4, 3))); !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation for update after cancel, got %v", err)
	}

	if _, err := f.engine.ConfirmReservation(ctx, uuid.New()); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown reservation, got %v", err)
	}
}

func TestUpdateReservation_NeverConflictsWithItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatal(err)
	}

	// Shift the stay by one day; the new range overlaps the stored one.
	updated, err := f.engine.UpdateReservation(ctx, res.ID, f.request(date(2025, 3, 2), date(2025, 3, 5)))
	if err != nil {
		t.Fatalf("expected self-overlapping update to succeed, got %v", err)
	}
	if !updated.TotalPrice.Equal(decimal.NewFromInt(450)) {
		t.Errorf("expected recomputed total 450, got %s", updated.TotalPrice)
	}
}

func TestUpdateReservation_ConflictWithOther(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 10), date(2025, 3, 12))); err != nil {
		t.Fatal(err)
	}
	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 20), date(2025, 3, 22)))
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.engine.UpdateReservation(ctx, res.ID, f.request(date(2025, 3, 11), date(2025, 3, 13)))
	if !domain.IsNotAvailable(err) {
		t.Errorf("expected RoomNotAvailable when moving onto another booking, got %v", err)
	}
}

func TestCreateReservation_SerializationFailureRetriedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A single aborted transaction is retried and the booking lands.
	f.store.failSaves = 1
	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatalf("expected retry to absorb one serialization failure, got %v", err)
	}
	if _, err := f.store.ReservationByID(ctx, res.ID); err != nil {
		t.Errorf("expected reservation to be persisted, got %v", err)
	}

	// Two consecutive aborts exhaust the retry and surface as
	// RoomNotAvailable.
	f.store.failSaves = 2
	_, err = f.engine.CreateReservation(ctx, f.request(date(2025, 4, 1), date(2025, 4, 3)))
	if !domain.IsNotAvailable(err) {
		t.Errorf("expected RoomNotAvailable after exhausted retry, got %v", err)
	}
}

// hookLock runs a callback once before delegating the first acquisition,
// modeling work that slips in while the caller waits for the room.
type hookLock struct {
	inner Locker
	hook  func()
	once  sync.Once
}

func (l *hookLock) Lock(ctx context.Context, key string) (func(), error) {
	l.once.Do(l.hook)
	return l.inner.Lock(ctx, key)
}

func TestUpdateReservation_CancelledWhileAcquiringLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
	if err != nil {
		t.Fatal(err)
	}

	f.engine.locker = &hookLock{inner: NewKeyedLock(), hook: func() {
		if _, err := f.engine.CancelReservation(ctx, res.ID); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
	}}

	// Moving the dates forces the lock; the cancellation that lands while
	// acquiring it must not be overwritten.
	_, err = f.engine.UpdateReservation(ctx, res.ID, f.request(date(2025, 3, 5), date(2025, 3, 7)))
	if !domain.IsInvalidOperation(err) {
		t.Errorf("expected InvalidOperation updating a freshly cancelled reservation, got %v", err)
	}

	stored, err := f.store.ReservationByID(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusCancelled {
		t.Errorf("expected cancellation to stand, got %s", stored.Status)
	}
}

func TestCheckAvailability_BackToBackConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.CreateReservation(ctx, f.request(date(2025, 3, 1), date(2025, 3, 3))); err != nil {
		t.Fatal(err)
	}

	// Same-day turnover counts as a conflict under the inclusive
	// boundary test.
	free, err := f.engine.CheckAvailability(ctx, f.roomID, date(2025, 3, 3), date(2025, 3, 5))
	if err != nil {
		t.Fatal(err)
	}
	if free {
		t.Error("expected back-to-back range to be unavailable")
	}

	free, err = f.engine.CheckAvailability(ctx, f.roomID, date(2025, 3, 4), date(2025, 3, 6))
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Error("expected disjoint range to be available")
	}
}

func TestConcurrentCreate_SingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var wins, conflicts atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.engine.CreateReservation(gctx, f.request(date(2025, 3, 1), date(2025, 3, 3)))
			switch {
			case err == nil:
				wins.Add(1)
			case domain.IsNotAvailable(err):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
	if conflicts.Load() != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts.Load())
	}
}
