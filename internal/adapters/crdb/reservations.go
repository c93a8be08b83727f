package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

const reservationColumns = `id, guest_id, room_id, check_in, check_out, guest_count, room_count, note, total_price, status, created_at`

// SaveReservation upserts the reservation and enqueues its lifecycle
// event to the outbox in the same transaction.
func (r *Repository) SaveReservation(ctx context.Context, res *domain.Reservation, event string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"reservation_id": res.ID,
		"guest_id":       res.GuestID,
		"room_id":        res.RoomID,
		"check_in":       res.CheckIn.Format("2006-01-02"),
		"check_out":      res.CheckOut.Format("2006-01-02"),
		"status":         res.Status,
		"total_price":    res.TotalPrice,
	})
	if err != nil {
		return err
	}

	return r.WithTx(ctx, func(tx pgx.Tx) error {
		// CANCELLED is terminal: the upsert refuses to touch a row that
		// reached it, no matter what the caller read earlier.
		result, err := tx.Exec(ctx, `
			INSERT INTO reservations (`+reservationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				guest_id = excluded.guest_id,
				room_id = excluded.room_id,
				check_in = excluded.check_in,
				check_out = excluded.check_out,
				guest_count = excluded.guest_count,
				room_count = excluded.room_count,
				note = excluded.note,
				total_price = excluded.total_price,
				status = excluded.status
			WHERE reservations.status <> 'CANCELLED'
		`, res.ID, res.GuestID, res.RoomID, res.CheckIn, res.CheckOut, res.GuestCount, res.RoomCount, res.Note, res.TotalPrice, res.Status, res.CreatedAt)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return &domain.InvalidOperationError{Reason: "reservation is already cancelled"}
		}

		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "reservation",
			AggregateID:   res.ID,
			EventType:     event,
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
}

func (r *Repository) ReservationByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+` FROM reservations WHERE id = $1
	`, id)

	res, err := scanReservation(row)
	if err == pgx.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "Reservation", Key: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repository) Reservations(ctx context.Context) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *Repository) ReservationsByGuest(ctx context.Context, guestID uuid.UUID) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations WHERE guest_id = $1 ORDER BY created_at
	`, guestID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ReservationsByRoomAndDateRange returns every reservation whose stay
// intersects the query interval under the inclusive boundary test,
// regardless of status.
func (r *Repository) ReservationsByRoomAndDateRange(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE room_id = $1 AND check_in <= $3 AND check_out >= $2
	`, roomID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *Repository) ActiveReservationCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM reservations
		WHERE room_id = $1 AND status IN ('PENDING', 'CONFIRMED')
	`, roomID).Scan(&count)
	return count, err
}

// FinishedStays lists CONFIRMED reservations whose checkout date has
// passed, for the completion worker.
func (r *Repository) FinishedStays(ctx context.Context, asOf time.Time) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status = 'CONFIRMED' AND check_out <= $1
	`, asOf)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reservations SET status = 'COMPLETED' WHERE id = $1 AND status = 'CONFIRMED'
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "Reservation", Key: id.String()}
	}
	return nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(&res.ID, &res.GuestID, &res.RoomID, &res.CheckIn, &res.CheckOut,
		&res.GuestCount, &res.RoomCount, &res.Note, &res.TotalPrice, &res.Status, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.CheckIn = domain.DateOnly(res.CheckIn)
	res.CheckOut = domain.DateOnly(res.CheckOut)
	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
