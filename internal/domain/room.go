package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RoomType string

const (
	RoomTypeSingle RoomType = "SINGLE"
	RoomTypeDouble RoomType = "DOUBLE"
	RoomTypeSuite  RoomType = "SUITE"
	RoomTypeDeluxe RoomType = "DELUXE"
)

// Room is a catalog record. The booking engine reads rooms but never
// mutates them; IsAvailable is an administrative toggle independent of
// any reservations on the room.
type Room struct {
	ID            uuid.UUID
	RoomNumber    string
	RoomType      RoomType
	PricePerNight decimal.Decimal
	Capacity      int
	IsAvailable   bool
	Description   string
	ImageURL      string
}

func ValidateRoom(r *Room) error {
	if r.RoomNumber == "" {
		return &InvalidOperationError{Reason: "room number is required"}
	}
	switch r.RoomType {
	case RoomTypeSingle, RoomTypeDouble, RoomTypeSuite, RoomTypeDeluxe:
	default:
		return &InvalidOperationError{Reason: "unknown room type: " + string(r.RoomType)}
	}
	if !r.PricePerNight.IsPositive() {
		return &InvalidOperationError{Reason: "price per night must be greater than zero"}
	}
	if r.Capacity < 1 || r.Capacity > 10 {
		return &InvalidOperationError{Reason: "capacity must be between 1 and 10"}
	}
	return nil
}
