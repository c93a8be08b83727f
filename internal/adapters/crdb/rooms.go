package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

const roomColumns = `id, room_number, room_type, price_per_night, capacity, is_available, description, image_url`

func (r *Repository) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, room.ID, room.RoomNumber, room.RoomType, room.PricePerNight, room.Capacity, room.IsAvailable, room.Description, room.ImageURL)
	return mapRoomError(err, room.RoomNumber)
}

func (r *Repository) UpdateRoom(ctx context.Context, room *domain.Room) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE rooms SET room_number = $2, room_type = $3, price_per_night = $4,
			capacity = $5, is_available = $6, description = $7, image_url = $8
		WHERE id = $1
	`, room.ID, room.RoomNumber, room.RoomType, room.PricePerNight, room.Capacity, room.IsAvailable, room.Description, room.ImageURL)
	if err != nil {
		return mapRoomError(err, room.RoomNumber)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "Room", Key: room.ID.String()}
	}
	return nil
}

func (r *Repository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "Room", Key: id.String()}
	}
	return nil
}

func (r *Repository) RoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM rooms WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "Room", Key: id.String()}
	}
	return room, err
}

func (r *Repository) RoomByNumber(ctx context.Context, number string) (*domain.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM rooms WHERE room_number = $1
	`, number))
	if err == pgx.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "Room", Key: number}
	}
	return room, err
}

func (r *Repository) Rooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms ORDER BY room_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	err := row.Scan(&room.ID, &room.RoomNumber, &room.RoomType, &room.PricePerNight,
		&room.Capacity, &room.IsAvailable, &room.Description, &room.ImageURL)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func mapRoomError(err error, number string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
		return &domain.DuplicateKeyError{Entity: "Room", Field: "roomNumber", Value: number}
	}
	return err
}
