package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type OrderStore struct {
	db *bun.DB
}

var _ contractx.OrderStore = (*OrderStore)(nil)

func NewOrderStore(db *bun.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Insert(ctx context.Context, order *contractx.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order is nil", contractx.ErrValidation)
	}

	row := &orderRow{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		TenantID:     order.TenantID,
		CustomerName: order.CustomerName,
		NationalID:   order.NationalID,
		Address:      order.Address,
		District:     order.District,
		Items:        append([]contractx.CartItem(nil), order.Items...),
		Total:        order.Total,
		Status:       string(order.Status),
		PaymentLink:  order.PaymentLink,
		CreatedAt:    order.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*contractx.Order, error) {
	row := new(orderRow)
	err := s.db.NewSelect().Model(row).
		Where("id = ?", orderID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &contractx.Order{
		ID:           row.ID,
		CustomerID:   row.CustomerID,
		TenantID:     row.TenantID,
		CustomerName: row.CustomerName,
		NationalID:   row.NationalID,
		Address:      row.Address,
		District:     row.District,
		Items:        append([]contractx.CartItem(nil), row.Items...),
		Total:        row.Total,
		Status:       contractx.OrderStatus(row.Status),
		PaymentLink:  row.PaymentLink,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func (s *OrderStore) Delete(ctx context.Context, orderID string) error {
	_, err := s.db.NewDelete().Model((*orderRow)(nil)).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (s *OrderStore) SetPaymentLink(ctx context.Context, orderID, link string) error {
	res, err := s.db.NewUpdate().Model((*orderRow)(nil)).
		Set("payment_link = ?", link).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set payment link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	return nil
}

func (s *OrderStore) SetStatus(ctx context.Context, orderID string, status contractx.OrderStatus) error {
	res, err := s.db.NewUpdate().Model((*orderRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	return nil
}
