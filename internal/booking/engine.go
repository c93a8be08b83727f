// Package booking implements the reservation booking engine: date
// validation, availability checks, pricing and the reservation state
// machine. Admission for a room is serialized by a per-room lock held
// across the check-and-write, so concurrent attempts on the same room
// cannot both observe "available".
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationStore persists reservations and answers the date-range
// overlap query. SaveReservation enqueues the lifecycle event in the
// same transaction as the write. The overlap query is status-blind;
// filtering by status is the engine's job.
type ReservationStore interface {
	SaveReservation(ctx context.Context, res *domain.Reservation, event string) error
	ReservationByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	Reservations(ctx context.Context) ([]domain.Reservation, error)
	ReservationsByGuest(ctx context.Context, guestID uuid.UUID) ([]domain.Reservation, error)
	ReservationsByRoomAndDateRange(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) ([]domain.Reservation, error)
}

type RoomStore interface {
	RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
}

type GuestStore interface {
	GuestByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error)
}

// Locker serializes booking attempts per room key. Lock blocks until
// the key is acquired or ctx is done; the returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// AuditLog records booking actions out of band. Failures are logged,
// never surfaced to the caller.
type AuditLog interface {
	Record(ctx context.Context, action string, res *domain.Reservation) error
}

type Engine struct {
	reservations ReservationStore
	rooms        RoomStore
	guests       GuestStore
	locker       Locker
	audit        AuditLog
	logger       observability.Logger
	now          func() time.Time
}

// NewEngine wires the booking engine. audit may be nil.
func NewEngine(reservations ReservationStore, rooms RoomStore, guests GuestStore, locker Locker, audit AuditLog, logger observability.Logger) *Engine {
	return &Engine{
		reservations: reservations,
		rooms:        rooms,
		guests:       guests,
		locker:       locker,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

type CreateRequest struct {
	GuestID    uuid.UUID
	RoomID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	GuestCount int
	RoomCount  int
	Note       string
}

type UpdateRequest = CreateRequest

func (e *Engine) CreateReservation(ctx context.Context, req CreateRequest) (*domain.Reservation, error) {
	if err := validateCounts(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateStayDates(req.CheckIn, req.CheckOut, e.now()); err != nil {
		return nil, err
	}

	if _, err := e.guests.GuestByID(ctx, req.GuestID); err != nil {
		return nil, err
	}
	room, err := e.rooms.RoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, roomKey(room.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var res *domain.Reservation
	err = e.withConflictRetry(func() error {
		free, err := e.availableExcluding(ctx, room.ID, req.CheckIn, req.CheckOut, uuid.Nil)
		if err != nil {
			return err
		}
		if !free {
			return &domain.NotAvailableError{RoomNumber: room.RoomNumber, CheckIn: domain.DateOnly(req.CheckIn), CheckOut: domain.DateOnly(req.CheckOut)}
		}
		total := domain.TotalPrice(room.PricePerNight, req.CheckIn, req.CheckOut, req.RoomCount)
		res = domain.NewReservation(req.GuestID, room.ID, req.CheckIn, req.CheckOut, req.GuestCount, req.RoomCount, req.Note, total)
		return e.reservations.SaveReservation(ctx, res, EventReservationCreated)
	})
	if err != nil {
		return nil, e.mapConflict(err, room, req)
	}

	observability.ReservationsCreated.Inc()
	e.recordAction(ctx, EventReservationCreated, res)
	return res, nil
}

func (e *Engine) UpdateReservation(ctx context.Context, id uuid.UUID, req UpdateRequest) (*domain.Reservation, error) {
	res, err := e.reservations.ReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.StatusCancelled {
		return nil, &domain.InvalidOperationError{Reason: "cannot update a cancelled reservation"}
	}

	if err := validateCounts(req); err != nil {
		return nil, err
	}
	if err := domain.ValidateStayDates(req.CheckIn, req.CheckOut, e.now()); err != nil {
		return nil, err
	}

	if _, err := e.guests.GuestByID(ctx, req.GuestID); err != nil {
		return nil, err
	}
	room, err := e.rooms.RoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	checkIn, checkOut := domain.DateOnly(req.CheckIn), domain.DateOnly(req.CheckOut)
	moved := room.ID != res.RoomID || !checkIn.Equal(res.CheckIn) || !checkOut.Equal(res.CheckOut)
	if moved {
		unlock, err := e.locker.Lock(ctx, roomKey(room.ID))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	var updated *domain.Reservation
	err = e.withConflictRetry(func() error {
		// Re-read under the lock; a cancellation landing after the first
		// load must not be overwritten back to an active status.
		current, err := e.reservations.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == domain.StatusCancelled {
			return &domain.InvalidOperationError{Reason: "cannot update a cancelled reservation"}
		}
		if moved {
			// A reservation never conflicts with its own current record.
			free, err := e.availableExcluding(ctx, room.ID, checkIn, checkOut, current.ID)
			if err != nil {
				return err
			}
			if !free {
				return &domain.NotAvailableError{RoomNumber: room.RoomNumber, CheckIn: checkIn, CheckOut: checkOut}
			}
		}
		current.GuestID = req.GuestID
		current.RoomID = room.ID
		current.CheckIn = checkIn
		current.CheckOut = checkOut
		current.GuestCount = req.GuestCount
		current.RoomCount = req.RoomCount
		current.Note = req.Note
		current.TotalPrice = domain.TotalPrice(room.PricePerNight, checkIn, checkOut, req.RoomCount)
		updated = current
		return e.reservations.SaveReservation(ctx, current, EventReservationUpdated)
	})
	if err != nil {
		return nil, e.mapConflict(err, room, req)
	}

	e.recordAction(ctx, EventReservationUpdated, updated)
	return updated, nil
}

func (e *Engine) CancelReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	res, err := e.reservations.ReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.StatusCancelled {
		return nil, &domain.InvalidOperationError{Reason: "reservation is already cancelled"}
	}

	res.Status = domain.StatusCancelled
	if err := e.reservations.SaveReservation(ctx, res, EventReservationCancelled); err != nil {
		return nil, err
	}

	observability.ReservationStatusChanges.WithLabelValues(string(domain.StatusCancelled)).Inc()
	e.recordAction(ctx, EventReservationCancelled, res)
	return res, nil
}

func (e *Engine) ConfirmReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	res, err := e.reservations.ReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.StatusCancelled {
		return nil, &domain.InvalidOperationError{Reason: "cannot confirm a cancelled reservation"}
	}
	if res.Status == domain.StatusConfirmed {
		return nil, &domain.InvalidOperationError{Reason: "reservation is already confirmed"}
	}

	res.Status = domain.StatusConfirmed
	if err := e.reservations.SaveReservation(ctx, res, EventReservationConfirmed); err != nil {
		return nil, err
	}

	observability.ReservationStatusChanges.WithLabelValues(string(domain.StatusConfirmed)).Inc()
	e.recordAction(ctx, EventReservationConfirmed, res)
	return res, nil
}

// CheckAvailability reports whether the room is free of active
// reservations over the inclusive date range. It is the single source of
// truth used standalone and as the gate inside create and update.
func (e *Engine) CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	return e.availableExcluding(ctx, roomID, checkIn, checkOut, uuid.Nil)
}

func (e *Engine) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return e.reservations.ReservationByID(ctx, id)
}

func (e *Engine) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	return e.reservations.Reservations(ctx)
}

func (e *Engine) ListReservationsByGuest(ctx context.Context, guestID uuid.UUID) ([]domain.Reservation, error) {
	return e.reservations.ReservationsByGuest(ctx, guestID)
}

func (e *Engine) availableExcluding(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time, exclude uuid.UUID) (bool, error) {
	overlapping, err := e.reservations.ReservationsByRoomAndDateRange(ctx, roomID, domain.DateOnly(checkIn), domain.DateOnly(checkOut))
	if err != nil {
		return false, err
	}
	for _, r := range overlapping {
		if r.ID == exclude {
			continue
		}
		if r.Status.Active() {
			return false, nil
		}
	}
	return true, nil
}

// withConflictRetry re-runs the full check-and-write once when the store
// aborts on a serialization failure.
func (e *Engine) withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, domain.ErrSerializationFailure) {
		err = fn()
	}
	return err
}

func (e *Engine) mapConflict(err error, room *domain.Room, req CreateRequest) error {
	if errors.Is(err, domain.ErrSerializationFailure) {
		err = &domain.NotAvailableError{RoomNumber: room.RoomNumber, CheckIn: domain.DateOnly(req.CheckIn), CheckOut: domain.DateOnly(req.CheckOut)}
	}
	if domain.IsNotAvailable(err) {
		observability.BookingConflicts.Inc()
	}
	return err
}

func (e *Engine) recordAction(ctx context.Context, action string, res *domain.Reservation) {
	e.logger.WithField("reservation_id", res.ID.String()).WithField("room_id", res.RoomID.String()).Info(action)
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, action, res); err != nil {
		e.logger.Error("failed to record audit entry", err)
	}
}

func validateCounts(req CreateRequest) error {
	if req.GuestCount < 1 {
		return &domain.InvalidOperationError{Reason: "number of guests must be at least 1"}
	}
	if req.RoomCount < 1 {
		return &domain.InvalidOperationError{Reason: "number of rooms must be at least 1"}
	}
	return nil
}

func roomKey(id uuid.UUID) string {
	return "room:" + id.String()
}
