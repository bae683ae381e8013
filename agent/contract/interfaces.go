package contract

import "context"

// TenantStore resolves and manages tenant configuration. FindByRoutingKey
// must be hit fresh on every turn: any field may change between messages.
type TenantStore interface {
	Create(ctx context.Context, cfg *TenantConfig) error
	List(ctx context.Context) ([]TenantConfig, error)
	Get(ctx context.Context, id string) (*TenantConfig, error)
	FindByRoutingKey(ctx context.Context, routingKey string) (*TenantConfig, error)
	Update(ctx context.Context, cfg *TenantConfig) error
	Delete(ctx context.Context, id string) error
}

// ProductStore gives tenant-scoped catalog access. Search ranks by
// semantic similarity against the stored embeddings.
type ProductStore interface {
	Get(ctx context.Context, tenantID, productID string) (*Product, error)
	Search(ctx context.Context, tenantID, query string, limit int) ([]Product, error)
}

type CartStore interface {
	// Get returns ErrNotFound when the customer has no cart yet.
	Get(ctx context.Context, customerID, tenantID string) (*Cart, error)
	// Save upserts the cart keyed by (customer, tenant).
	Save(ctx context.Context, cart *Cart) error
	// Clear empties items and resets total to zero.
	Clear(ctx context.Context, customerID, tenantID string) error
}

type OrderStore interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	Delete(ctx context.Context, orderID string) error
	SetPaymentLink(ctx context.Context, orderID, link string) error
	SetStatus(ctx context.Context, orderID string, status OrderStatus) error
}

// HistoryStore is the bounded message log. Append adds exactly one turn
// and evicts from the front past HistoryLimit; Read returns oldest-first.
type HistoryStore interface {
	Read(ctx context.Context, customerID, tenantID string) ([]ChatTurn, error)
	Append(ctx context.Context, customerID, tenantID string, turn ChatTurn) error
}

type AuthStore interface {
	IsAuthorized(ctx context.Context, customerID, tenantID string) (bool, error)
	Authorize(ctx context.Context, customerID, tenantID string, flowID int) error
	Deauthorize(ctx context.Context, customerID, tenantID string) error
	ListAuthorized(ctx context.Context, tenantID string) ([]CustomerAuth, error)
}

// Channel sends messages to a customer on behalf of a tenant. Failures
// are reported, not retried.
type Channel interface {
	SendText(ctx context.Context, to, text string, creds ChannelCreds) error
	SendImage(ctx context.Context, to, imageURL, caption string, creds ChannelCreds) error
}
