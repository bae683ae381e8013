package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type AuthStore struct {
	db *bun.DB
}

var _ contractx.AuthStore = (*AuthStore)(nil)

func NewAuthStore(db *bun.DB) *AuthStore {
	return &AuthStore{db: db}
}

func (s *AuthStore) IsAuthorized(ctx context.Context, customerID, tenantID string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*customerAuthRow)(nil)).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Where("is_active").
		Exists(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check authorization: %w", err)
	}
	return exists, nil
}

func (s *AuthStore) Authorize(ctx context.Context, customerID, tenantID string, flowID int) error {
	if flowID <= 0 {
		flowID = 1
	}
	row := &customerAuthRow{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		TenantID:   tenantID,
		FlowID:     flowID,
		IsActive:   true,
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (customer_id, tenant_id) DO UPDATE").
		Set("flow_id = EXCLUDED.flow_id").
		Set("is_active = TRUE").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("authorize customer: %w", err)
	}
	return nil
}

func (s *AuthStore) Deauthorize(ctx context.Context, customerID, tenantID string) error {
	res, err := s.db.NewUpdate().Model((*customerAuthRow)(nil)).
		Set("is_active = FALSE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("customer_id = ?", customerID).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deauthorize customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	return nil
}

func (s *AuthStore) ListAuthorized(ctx context.Context, tenantID string) ([]contractx.CustomerAuth, error) {
	var rows []customerAuthRow
	if err := s.db.NewSelect().Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("is_active").
		Order("updated_at DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list authorized customers: %w", err)
	}

	auths := make([]contractx.CustomerAuth, 0, len(rows))
	for _, row := range rows {
		auths = append(auths, contractx.CustomerAuth{
			CustomerID: row.CustomerID,
			TenantID:   row.TenantID,
			FlowID:     row.FlowID,
			IsActive:   row.IsActive,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return auths, nil
}
