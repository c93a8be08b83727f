package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations/internal/domain"
)

const guestColumns = `id, first_name, last_name, email, phone_number, address, account_id`

func (r *Repository) CreateGuest(ctx context.Context, guest *domain.Guest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO guests (`+guestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, guest.ID, guest.FirstName, guest.LastName, guest.Email, guest.PhoneNumber, guest.Address, guest.AccountID)
	return err
}

func (r *Repository) UpdateGuest(ctx context.Context, guest *domain.Guest) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE guests SET first_name = $2, last_name = $3, email = $4,
			phone_number = $5, address = $6, account_id = $7
		WHERE id = $1
	`, guest.ID, guest.FirstName, guest.LastName, guest.Email, guest.PhoneNumber, guest.Address, guest.AccountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "Guest", Key: guest.ID.String()}
	}
	return nil
}

func (r *Repository) DeleteGuest(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "Guest", Key: id.String()}
	}
	return nil
}

func (r *Repository) GuestByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error) {
	guest, err := scanGuest(r.pool.QueryRow(ctx, `
		SELECT `+guestColumns+` FROM guests WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "Guest", Key: id.String()}
	}
	return guest, err
}

func (r *Repository) Guests(ctx context.Context) ([]domain.Guest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+guestColumns+` FROM guests ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	return collectGuests(rows)
}

func (r *Repository) GuestsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Guest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+guestColumns+` FROM guests WHERE account_id = $1 ORDER BY last_name, first_name
	`, accountID)
	if err != nil {
		return nil, err
	}
	return collectGuests(rows)
}

func scanGuest(row pgx.Row) (*domain.Guest, error) {
	var guest domain.Guest
	err := row.Scan(&guest.ID, &guest.FirstName, &guest.LastName, &guest.Email,
		&guest.PhoneNumber, &guest.Address, &guest.AccountID)
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func collectGuests(rows pgx.Rows) ([]domain.Guest, error) {
	defer rows.Close()
	var out []domain.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *guest)
	}
	return out, rows.Err()
}
