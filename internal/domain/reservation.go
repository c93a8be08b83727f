package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// Active reports whether the status blocks availability. CANCELLED and
// COMPLETED reservations release their dates.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation references its guest and room by id only; both have
// independent lifecycles.
type Reservation struct {
	ID         uuid.UUID
	GuestID    uuid.UUID
	RoomID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	GuestCount int
	RoomCount  int
	Note       string
	TotalPrice decimal.Decimal
	Status     ReservationStatus
	CreatedAt  time.Time
}

func NewReservation(guestID, roomID uuid.UUID, checkIn, checkOut time.Time, guestCount, roomCount int, note string, total decimal.Decimal) *Reservation {
	return &Reservation{
		ID:         uuid.New(),
		GuestID:    guestID,
		RoomID:     roomID,
		CheckIn:    DateOnly(checkIn),
		CheckOut:   DateOnly(checkOut),
		GuestCount: guestCount,
		RoomCount:  roomCount,
		Note:       note,
		TotalPrice: total,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Overlaps applies the inclusive boundary test: ranges sharing only a
// turnover day (one checkout equals the other's checkin) still conflict.
func (r *Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return !r.CheckIn.After(checkOut) && !r.CheckOut.Before(checkIn)
}

// DateOnly truncates a timestamp to its UTC calendar day. All stay dates
// are handled at day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts whole days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int64 {
	return int64(DateOnly(checkOut).Sub(DateOnly(checkIn)).Hours() / 24)
}

// TotalPrice is the flat linear model: price per night times nights times
// number of rooms.
func TotalPrice(pricePerNight decimal.Decimal, checkIn, checkOut time.Time, roomCount int) decimal.Decimal {
	return pricePerNight.
		Mul(decimal.NewFromInt(Nights(checkIn, checkOut))).
		Mul(decimal.NewFromInt(int64(roomCount)))
}

// ValidateStayDates enforces the date invariants against the given
// "today": check-in must not be in the past, check-out must be strictly
// after check-in.
func ValidateStayDates(checkIn, checkOut, today time.Time) error {
	checkIn, checkOut, today = DateOnly(checkIn), DateOnly(checkOut), DateOnly(today)
	if checkIn.Before(today) {
		return &InvalidOperationError{Reason: "check-in date cannot be in the past"}
	}
	if !checkOut.After(checkIn) {
		return &InvalidOperationError{Reason: "check-out date must be after check-in date"}
	}
	return nil
}
