package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type TenantStore struct {
	db *bun.DB
}

var _ contractx.TenantStore = (*TenantStore)(nil)

func NewTenantStore(db *bun.DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Create(ctx context.Context, cfg *contractx.TenantConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: tenant config is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.RoutingKey) == "" {
		return fmt.Errorf("%w: routing key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.WelcomeMessage) == "" {
		return fmt.Errorf("%w: welcome message is required", contractx.ErrValidation)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Variant == "" {
		cfg.Variant = contractx.VariantCatalog
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "v17.0"
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	row := tenantRowFromConfig(cfg)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *TenantStore) List(ctx context.Context) ([]contractx.TenantConfig, error) {
	var rows []tenantRow
	if err := s.db.NewSelect().Model(&rows).
		Where("is_active").
		Order("created_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	configs := make([]contractx.TenantConfig, 0, len(rows))
	for i := range rows {
		configs = append(configs, *rows[i].toConfig())
	}
	return configs, nil
}

func (s *TenantStore) Get(ctx context.Context, id string) (*contractx.TenantConfig, error) {
	row := new(tenantRow)
	err := s.db.NewSelect().Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tenant %s", contractx.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return row.toConfig(), nil
}

// FindByRoutingKey returns the active tenant for a channel routing key.
// Configuration is operator-mutable, so callers resolve per turn instead
// of caching.
func (s *TenantStore) FindByRoutingKey(ctx context.Context, routingKey string) (*contractx.TenantConfig, error) {
	key := strings.TrimSpace(routingKey)
	if key == "" {
		return nil, fmt.Errorf("%w: routing key is required", contractx.ErrValidation)
	}

	row := new(tenantRow)
	err := s.db.NewSelect().Model(row).
		Where("routing_key = ?", key).
		Where("is_active").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tenant for routing key %s", contractx.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant by routing key: %w", err)
	}
	return row.toConfig(), nil
}

func (s *TenantStore) Update(ctx context.Context, cfg *contractx.TenantConfig) error {
	if cfg == nil || strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("%w: tenant id is required", contractx.ErrValidation)
	}
	cfg.UpdatedAt = time.Now().UTC()

	row := tenantRowFromConfig(cfg)
	res, err := s.db.NewUpdate().Model(row).
		WherePK().
		Column("name", "phone_number", "routing_key", "verify_token", "access_token",
			"api_version", "variant", "system_prompt", "welcome_message",
			"welcome_images", "is_active", "updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: tenant %s", contractx.ErrNotFound, cfg.ID)
	}
	return nil
}

func (s *TenantStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*tenantRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: tenant %s", contractx.ErrNotFound, id)
	}
	return nil
}
