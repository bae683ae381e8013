package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type CartStore struct {
	db *bun.DB
}

var _ contractx.CartStore = (*CartStore)(nil)

func NewCartStore(db *bun.DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) Get(ctx context.Context, customerID, tenantID string) (*contractx.Cart, error) {
	row := new(cartRow)
	err := s.db.NewSelect().Model(row).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cart for customer %s", contractx.ErrNotFound, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return &contractx.Cart{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		TenantID:   row.TenantID,
		Items:      append([]contractx.CartItem(nil), row.Items...),
		Total:      row.Total,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// Save upserts on the (customer, tenant) uniqueness constraint, so there
// is never more than one cart per pair.
func (s *CartStore) Save(ctx context.Context, cart *contractx.Cart) error {
	if cart == nil {
		return fmt.Errorf("%w: cart is nil", contractx.ErrValidation)
	}

	row := &cartRow{
		ID:         cart.ID,
		CustomerID: cart.CustomerID,
		TenantID:   cart.TenantID,
		Items:      append([]contractx.CartItem(nil), cart.Items...),
		Total:      cart.Total,
		UpdatedAt:  cart.UpdatedAt,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (customer_id, tenant_id) DO UPDATE").
		Set("items = EXCLUDED.items").
		Set("total = EXCLUDED.total").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, customerID, tenantID string) error {
	_, err := s.db.NewUpdate().Model((*cartRow)(nil)).
		Set("items = '[]'::jsonb").
		Set("total = 0").
		Set("updated_at = ?", time.Now().UTC()).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
