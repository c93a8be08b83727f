// Package catalog manages the room inventory. Rooms are read by the
// booking engine but only mutated here.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/shopspring/decimal"
)

type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	UpdateRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	RoomByNumber(ctx context.Context, number string) (*domain.Room, error)
	Rooms(ctx context.Context) ([]domain.Room, error)
}

type ReservationCounter interface {
	ActiveReservationCount(ctx context.Context, roomID uuid.UUID) (int, error)
}

// AvailabilityChecker is the booking engine's availability check,
// consulted for date-range search criteria.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) (bool, error)
}

type Service struct {
	rooms        RoomStore
	reservations ReservationCounter
	availability AvailabilityChecker
	logger       observability.Logger
}

func NewService(rooms RoomStore, reservations ReservationCounter, availability AvailabilityChecker, logger observability.Logger) *Service {
	return &Service{rooms: rooms, reservations: reservations, availability: availability, logger: logger}
}

func (s *Service) Create(ctx context.Context, room domain.Room) (*domain.Room, error) {
	if err := domain.ValidateRoom(&room); err != nil {
		return nil, err
	}
	if existing, err := s.rooms.RoomByNumber(ctx, room.RoomNumber); err == nil && existing != nil {
		return nil, &domain.DuplicateKeyError{Entity: "Room", Field: "roomNumber", Value: room.RoomNumber}
	} else if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if err := s.rooms.CreateRoom(ctx, &room); err != nil {
		return nil, err
	}
	s.logger.WithField("room_number", room.RoomNumber).Info("room created")
	return &room, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in domain.Room) (*domain.Room, error) {
	room, err := s.rooms.RoomByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRoom(&in); err != nil {
		return nil, err
	}

	if room.RoomNumber != in.RoomNumber {
		if owner, err := s.rooms.RoomByNumber(ctx, in.RoomNumber); err == nil && owner != nil && owner.ID != id {
			return nil, &domain.DuplicateKeyError{Entity: "Room", Field: "roomNumber", Value: in.RoomNumber}
		} else if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
	}

	in.ID = id
	if err := s.rooms.UpdateRoom(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Delete refuses to drop a room that still has active reservations;
// history for released rooms is the caller's concern.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.rooms.RoomByID(ctx, id); err != nil {
		return err
	}
	active, err := s.reservations.ActiveReservationCount(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return &domain.InvalidOperationError{Reason: "cannot delete a room with active reservations"}
	}
	return s.rooms.DeleteRoom(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	return s.rooms.RoomByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.Rooms(ctx)
}

// SearchCriteria narrows the room list by conjunction of the present
// options. The date range option consults the booking engine per
// candidate room and is only applied when both dates are set.
type SearchCriteria struct {
	RoomType    *domain.RoomType
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinCapacity *int
	IsAvailable *bool
	CheckIn     *time.Time
	CheckOut    *time.Time
}

func (s *Service) Search(ctx context.Context, criteria SearchCriteria) ([]domain.Room, error) {
	rooms, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		if criteria.RoomType != nil && room.RoomType != *criteria.RoomType {
			continue
		}
		if criteria.MinPrice != nil && room.PricePerNight.LessThan(*criteria.MinPrice) {
			continue
		}
		if criteria.MaxPrice != nil && room.PricePerNight.GreaterThan(*criteria.MaxPrice) {
			continue
		}
		if criteria.MinCapacity != nil && room.Capacity < *criteria.MinCapacity {
			continue
		}
		if criteria.IsAvailable != nil && room.IsAvailable != *criteria.IsAvailable {
			continue
		}
		if criteria.CheckIn != nil && criteria.CheckOut != nil {
			free, err := s.availability.CheckAvailability(ctx, room.ID, *criteria.CheckIn, *criteria.CheckOut)
			if err != nil {
				return nil, err
			}
			if !free {
				continue
			}
		}
		out = append(out, room)
	}
	return out, nil
}
