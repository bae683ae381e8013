package contract

import (
	"strings"
	"time"
)

type AgentVariant string

const (
	// VariantCatalog is the general retail flow: browse -> cart -> checkout.
	VariantCatalog AgentVariant = "catalog"
	// VariantDirectOrder is the kitchen/delivery flow: one shot order creation.
	VariantDirectOrder AgentVariant = "direct_order"
)

// TenantConfig is one onboarded seller. It is operator-mutable state and
// must be re-resolved on every inbound message, never cached across turns.
type TenantConfig struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	PhoneNumber    string       `json:"phone_number"`
	RoutingKey     string       `json:"routing_key"` // channel phone_number_id
	VerifyToken    string       `json:"verify_token"`
	AccessToken    string       `json:"access_token"`
	APIVersion     string       `json:"api_version"`
	Variant        AgentVariant `json:"variant"`
	SystemPrompt   string       `json:"system_prompt"` // may contain {welcome_message}
	WelcomeMessage string       `json:"welcome_message"`
	WelcomeImages  []string     `json:"welcome_images,omitempty"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ChannelCreds is the subset of tenant configuration the outbound
// channel needs to speak for the tenant.
type ChannelCreds struct {
	PhoneNumberID string
	AccessToken   string
	APIVersion    string
}

func (c *TenantConfig) Creds() ChannelCreds {
	apiVersion := strings.TrimSpace(c.APIVersion)
	if apiVersion == "" {
		apiVersion = "v17.0"
	}
	return ChannelCreds{
		PhoneNumberID: c.RoutingKey,
		AccessToken:   c.AccessToken,
		APIVersion:    apiVersion,
	}
}

type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// ChatTurn is one entry of the bounded per-(customer, tenant) history.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryLimit caps the retained chat history per (customer, tenant).
// Older turns are prefix-dropped after every append.
const HistoryLimit = 20

type CartItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	UnitPrice float64 `json:"unit_price"`
}

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	TenantID   string     `json:"tenant_id"`
	Items      []CartItem `json:"items"`
	Total      float64    `json:"total"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RecomputeTotal rederives the cart total from its items. Total is never
// stored independently of the items that produced it.
func (c *Cart) RecomputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	c.Total = total
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID           string      `json:"id"`
	CustomerID   string      `json:"customer_id"`
	TenantID     string      `json:"tenant_id"`
	CustomerName string      `json:"customer_name"`
	NationalID   string      `json:"national_id,omitempty"`
	Address      string      `json:"address"`
	District     string      `json:"district,omitempty"`
	Items        []CartItem  `json:"items"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status"`
	PaymentLink  string      `json:"payment_link,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// CustomerInfo is the customer-supplied data required to finalize a cart.
type CustomerInfo struct {
	Name       string
	NationalID string
	Address    string
	District   string
}

// DirectOrderItem references a product whose price is resolved at
// order-creation time (captured, not referenced live).
type DirectOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockEntry struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

type Product struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Price       float64      `json:"price"`
	Currency    string       `json:"currency"`
	Stock       []StockEntry `json:"stock,omitempty"`
	Images      []string     `json:"images,omitempty"`
}

// CustomerAuth marks a customer as permitted to talk to a tenant.
type CustomerAuth struct {
	CustomerID string    `json:"customer_id"`
	TenantID   string    `json:"tenant_id"`
	FlowID     int       `json:"flow_id"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InboundMessage is the normalized shape handed over by the webhook
// transport.
type InboundMessage struct {
	RoutingKey string    `json:"routing_key"`
	From       string    `json:"from"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is always textual: either a human-readable result fed back
// into the reasoning loop, or an error string the model can recover from
// conversationally. Tool failures never abort a turn.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
