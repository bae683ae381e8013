// Package store persists tenants, products, carts, orders and chat
// histories in Postgres via bun.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type tenantRow struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name,notnull"`
	PhoneNumber    string    `bun:"phone_number,notnull,unique"`
	RoutingKey     string    `bun:"routing_key,notnull,unique"`
	VerifyToken    string    `bun:"verify_token,notnull"`
	AccessToken    string    `bun:"access_token,notnull"`
	APIVersion     string    `bun:"api_version,notnull,default:'v17.0'"`
	Variant        string    `bun:"variant,notnull,default:'catalog'"`
	SystemPrompt   string    `bun:"system_prompt"`
	WelcomeMessage string    `bun:"welcome_message,notnull"`
	WelcomeImages  []string  `bun:"welcome_images,type:jsonb"`
	IsActive       bool      `bun:"is_active,notnull,default:true"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string                 `bun:"id,pk"`
	TenantID    string                 `bun:"tenant_id,notnull"`
	Name        string                 `bun:"name,notnull"`
	Description string                 `bun:"description,notnull"`
	Category    string                 `bun:"category,notnull"`
	Price       float64                `bun:"price,notnull"`
	Currency    string                 `bun:"currency,notnull,default:'PEN'"`
	Stock       []contractx.StockEntry `bun:"stock,type:jsonb"`
	Images      []string               `bun:"images,type:jsonb"`
	Embedding   []float64              `bun:"embedding,type:jsonb"`
	CreatedAt   time.Time              `bun:"created_at,notnull,default:current_timestamp"`
}

type cartRow struct {
	bun.BaseModel `bun:"table:carts,alias:c"`

	ID         string               `bun:"id,pk"`
	CustomerID string               `bun:"customer_id,notnull,unique:carts_customer_tenant"`
	TenantID   string               `bun:"tenant_id,notnull,unique:carts_customer_tenant"`
	Items      []contractx.CartItem `bun:"items,type:jsonb"`
	Total      float64              `bun:"total,notnull,default:0"`
	UpdatedAt  time.Time            `bun:"updated_at,notnull,default:current_timestamp"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           string               `bun:"id,pk"`
	CustomerID   string               `bun:"customer_id,notnull"`
	TenantID     string               `bun:"tenant_id,notnull"`
	CustomerName string               `bun:"customer_name,notnull"`
	NationalID   string               `bun:"national_id"`
	Address      string               `bun:"address,notnull"`
	District     string               `bun:"district"`
	Items        []contractx.CartItem `bun:"items,type:jsonb"`
	Total        float64              `bun:"total,notnull"`
	Status       string               `bun:"status,notnull,default:'pending'"`
	PaymentLink  string               `bun:"payment_link"`
	CreatedAt    time.Time            `bun:"created_at,notnull,default:current_timestamp"`
}

type historyRow struct {
	bun.BaseModel `bun:"table:chat_histories,alias:h"`

	ID         string               `bun:"id,pk"`
	CustomerID string               `bun:"customer_id,notnull,unique:histories_customer_tenant"`
	TenantID   string               `bun:"tenant_id,notnull,unique:histories_customer_tenant"`
	Messages   []contractx.ChatTurn `bun:"messages,type:jsonb"`
	UpdatedAt  time.Time            `bun:"updated_at,notnull,default:current_timestamp"`
}

type customerAuthRow struct {
	bun.BaseModel `bun:"table:customer_auths,alias:a"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id,notnull,unique:auths_customer_tenant"`
	TenantID   string    `bun:"tenant_id,notnull,unique:auths_customer_tenant"`
	FlowID     int       `bun:"flow_id,notnull,default:1"`
	IsActive   bool      `bun:"is_active,notnull,default:true"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// InitSchema creates the tables if they do not exist yet. Production
// deployments run real migrations; this keeps development and tests
// self-contained.
func InitSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*tenantRow)(nil),
		(*productRow)(nil),
		(*cartRow)(nil),
		(*orderRow)(nil),
		(*historyRow)(nil),
		(*customerAuthRow)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (r *tenantRow) toConfig() *contractx.TenantConfig {
	return &contractx.TenantConfig{
		ID:             r.ID,
		Name:           r.Name,
		PhoneNumber:    r.PhoneNumber,
		RoutingKey:     r.RoutingKey,
		VerifyToken:    r.VerifyToken,
		AccessToken:    r.AccessToken,
		APIVersion:     r.APIVersion,
		Variant:        contractx.AgentVariant(r.Variant),
		SystemPrompt:   r.SystemPrompt,
		WelcomeMessage: r.WelcomeMessage,
		WelcomeImages:  append([]string(nil), r.WelcomeImages...),
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func tenantRowFromConfig(cfg *contractx.TenantConfig) *tenantRow {
	return &tenantRow{
		ID:             cfg.ID,
		Name:           cfg.Name,
		PhoneNumber:    cfg.PhoneNumber,
		RoutingKey:     cfg.RoutingKey,
		VerifyToken:    cfg.VerifyToken,
		AccessToken:    cfg.AccessToken,
		APIVersion:     cfg.APIVersion,
		Variant:        string(cfg.Variant),
		SystemPrompt:   cfg.SystemPrompt,
		WelcomeMessage: cfg.WelcomeMessage,
		WelcomeImages:  append([]string(nil), cfg.WelcomeImages...),
		IsActive:       cfg.IsActive,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func (r *productRow) toProduct() contractx.Product {
	return contractx.Product{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Currency:    r.Currency,
		Stock:       append([]contractx.StockEntry(nil), r.Stock...),
		Images:      append([]string(nil), r.Images...),
	}
}
