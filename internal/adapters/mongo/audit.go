// Package mongo keeps the booking audit trail. Writes are best-effort;
// the engine logs failures and carries on.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("booking_audit"),
		logger: logger,
	}
}

type AuditEntry struct {
	ID            uuid.UUID `bson:"_id"`
	Action        string    `bson:"action"`
	ReservationID uuid.UUID `bson:"reservation_id"`
	GuestID       uuid.UUID `bson:"guest_id"`
	RoomID        uuid.UUID `bson:"room_id"`
	Timestamp     time.Time `bson:"timestamp"`
	Data          bson.M    `bson:"data"`
}

func (a *AuditLogger) Record(ctx context.Context, action string, res *domain.Reservation) error {
	entry := AuditEntry{
		ID:            uuid.New(),
		Action:        action,
		ReservationID: res.ID,
		GuestID:       res.GuestID,
		RoomID:        res.RoomID,
		Timestamp:     time.Now(),
		Data: bson.M{
			"check_in":    res.CheckIn.Format("2006-01-02"),
			"check_out":   res.CheckOut.Format("2006-01-02"),
			"status":      string(res.Status),
			"total_price": res.TotalPrice.String(),
			"room_count":  res.RoomCount,
		},
	}
	_, err := a.coll.InsertOne(ctx, entry)
	if err != nil {
		a.logger.Error("failed to insert audit entry", err)
		return err
	}
	return nil
}
