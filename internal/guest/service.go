// Package guest manages the guest directory. Guests are referenced by
// reservations but owned here; an optional account id links a guest to
// the external identity provider.
package guest

import (
	"context"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
)

type Store interface {
	CreateGuest(ctx context.Context, guest *domain.Guest) error
	UpdateGuest(ctx context.Context, guest *domain.Guest) error
	DeleteGuest(ctx context.Context, id uuid.UUID) error
	GuestByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error)
	Guests(ctx context.Context) ([]domain.Guest, error)
	GuestsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Guest, error)
}

type Service struct {
	store  Store
	logger observability.Logger
}

func NewService(store Store, logger observability.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, in domain.Guest) (*domain.Guest, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if err := s.store.CreateGuest(ctx, &in); err != nil {
		return nil, err
	}
	s.logger.WithField("guest_id", in.ID.String()).Info("guest created")
	return &in, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in domain.Guest) (*domain.Guest, error) {
	if _, err := s.store.GuestByID(ctx, id); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	in.ID = id
	if err := s.store.UpdateGuest(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GuestByID(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteGuest(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Guest, error) {
	return s.store.GuestByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Guest, error) {
	return s.store.Guests(ctx)
}

func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Guest, error) {
	return s.store.GuestsByAccount(ctx, accountID)
}

func validate(g *domain.Guest) error {
	if g.FirstName == "" || g.LastName == "" {
		return &domain.InvalidOperationError{Reason: "guest name is required"}
	}
	if g.Email == "" {
		return &domain.InvalidOperationError{Reason: "guest email is required"}
	}
	return nil
}
