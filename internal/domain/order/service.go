package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrMissingUser is returned when an order has no owner.
var ErrMissingUser = errors.New("user id required")

// Service records orders and lists a user's purchase history.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service backed by orders.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// Record assigns an id and creation time to o and persists it.
func (s *Service) Record(ctx context.Context, o *Order) error {
	if o.UserID == "" {
		return ErrMissingUser
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return errors.Wrap(err, "create order")
	}
	return nil
}

// History returns the orders of userID, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
