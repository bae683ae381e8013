// Package checkout drives the cart -> order -> payment link sequence.
// It owns the state machine the agent's tools mutate and keeps every
// transition tenant-scoped.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type Service struct {
	carts    contractx.CartStore
	orders   contractx.OrderStore
	products contractx.ProductStore

	paymentBaseURL string
	now            func() time.Time
	newID          func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(
	carts contractx.CartStore,
	orders contractx.OrderStore,
	products contractx.ProductStore,
	paymentBaseURL string,
	opts ...Option,
) (*Service, error) {
	if carts == nil {
		return nil, errors.New("cart store is required")
	}
	if orders == nil {
		return nil, errors.New("order store is required")
	}
	if products == nil {
		return nil, errors.New("product store is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(paymentBaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("payment base url is required")
	}

	s := &Service{
		carts:          carts,
		orders:         orders,
		products:       products,
		paymentBaseURL: baseURL,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// AddItem appends one line item to the (customer, tenant) cart, creating
// the cart lazily, and recomputes the total from scratch.
func (s *Service) AddItem(ctx context.Context, customerID, tenantID string, item contractx.CartItem) (*contractx.Cart, error) {
	if strings.TrimSpace(item.ProductID) == "" {
		return nil, fmt.Errorf("%w: product id is required", contractx.ErrValidation)
	}
	if item.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", contractx.ErrValidation)
	}
	if item.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must be >= 0", contractx.ErrValidation)
	}

	cart, err := s.carts.Get(ctx, customerID, tenantID)
	if errors.Is(err, contractx.ErrNotFound) {
		cart = &contractx.Cart{
			ID:         s.newID(),
			CustomerID: customerID,
			TenantID:   tenantID,
		}
	} else if err != nil {
		return nil, err
	}

	cart.Items = append(cart.Items, item)
	cart.RecomputeTotal()
	cart.UpdatedAt = s.now().UTC()

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) ViewCart(ctx context.Context, customerID, tenantID string) (*contractx.Cart, error) {
	return s.carts.Get(ctx, customerID, tenantID)
}

// Finalize converts a non-empty cart into a pending order and clears the
// cart. There is no transaction spanning both stores: if the clear fails
// after the order was inserted, the order is deleted again so a retried
// turn cannot double-charge the customer.
func (s *Service) Finalize(ctx context.Context, customerID, tenantID string, info contractx.CustomerInfo) (*contractx.Order, error) {
	if strings.TrimSpace(info.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(info.Address) == "" {
		return nil, fmt.Errorf("%w: address is required", contractx.ErrValidation)
	}

	cart, err := s.carts.Get(ctx, customerID, tenantID)
	if errors.Is(err, contractx.ErrNotFound) {
		return nil, contractx.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, contractx.ErrEmptyCart
	}

	order := &contractx.Order{
		ID:           s.newID(),
		CustomerID:   customerID,
		TenantID:     tenantID,
		CustomerName: strings.TrimSpace(info.Name),
		NationalID:   strings.TrimSpace(info.NationalID),
		Address:      strings.TrimSpace(info.Address),
		District:     strings.TrimSpace(info.District),
		Items:        append([]contractx.CartItem(nil), cart.Items...),
		Total:        cart.Total,
		Status:       contractx.OrderPending,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, customerID, tenantID); err != nil {
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			log.Error().Err(delErr).
				Str("order_id", order.ID).
				Msg("compensating order delete failed; manual cleanup required")
		}
		return nil, fmt.Errorf("clear cart after order create: %w", err)
	}

	return order, nil
}

// PaymentLink generates the payment link for an order and stores it.
// Regeneration is safe: the link is derived from the order id and always
// overwrites, without touching the order status.
func (s *Service) PaymentLink(ctx context.Context, orderID string) (string, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/pay/%s", s.paymentBaseURL, orderID)
	if err := s.orders.SetPaymentLink(ctx, orderID, link); err != nil {
		return "", err
	}
	return link, nil
}

// CreateDirectOrder builds a pending order without a cart, resolving each
// product's current price at creation time. Any unknown product fails the
// whole order; nothing is persisted in that case.
func (s *Service) CreateDirectOrder(
	ctx context.Context,
	customerID, tenantID string,
	items []contractx.DirectOrderItem,
	info contractx.CustomerInfo,
) (*contractx.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(info.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(info.Address) == "" {
		return nil, fmt.Errorf("%w: delivery address is required", contractx.ErrValidation)
	}

	lines := make([]contractx.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be >= 1", contractx.ErrValidation)
		}
		product, err := s.products.Get(ctx, tenantID, item.ProductID)
		if errors.Is(err, contractx.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, contractx.CartItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	order := &contractx.Order{
		ID:           s.newID(),
		CustomerID:   customerID,
		TenantID:     tenantID,
		CustomerName: strings.TrimSpace(info.Name),
		Address:      strings.TrimSpace(info.Address),
		District:     strings.TrimSpace(info.District),
		Items:        lines,
		Status:       contractx.OrderPending,
		CreatedAt:    s.now().UTC(),
	}
	cart := contractx.Cart{Items: lines}
	cart.RecomputeTotal()
	order.Total = cart.Total

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus advances an order through its finite state machine:
// pending -> paid -> delivered, with cancelled reachable from pending
// and paid.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next contractx.OrderStatus) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !transitionAllowed(order.Status, next) {
		return fmt.Errorf("%w: %s -> %s", contractx.ErrInvalidTransition, order.Status, next)
	}
	return s.orders.SetStatus(ctx, orderID, next)
}

func transitionAllowed(from, to contractx.OrderStatus) bool {
	switch from {
	case contractx.OrderPending:
		return to == contractx.OrderPaid || to == contractx.OrderCancelled
	case contractx.OrderPaid:
		return to == contractx.OrderDelivered || to == contractx.OrderCancelled
	default:
		return false
	}
}
