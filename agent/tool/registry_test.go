package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	checkoutx "github.com/ventaluz/ventaluz/agent/checkout"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type fakeProducts struct {
	byID    map[string]*contractx.Product
	results []contractx.Product
}

func (f *fakeProducts) Get(ctx context.Context, tenantID, productID string) (*contractx.Product, error) {
	p, ok := f.byID[tenantID+"|"+productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", contractx.ErrNotFound, productID)
	}
	return p, nil
}

func (f *fakeProducts) Search(ctx context.Context, tenantID, query string, limit int) ([]contractx.Product, error) {
	return f.results, nil
}

type fakeCarts struct {
	mu    sync.Mutex
	carts map[string]*contractx.Cart
}

func (f *fakeCarts) key(customerID, tenantID string) string { return customerID + "|" + tenantID }

func (f *fakeCarts) Get(ctx context.Context, customerID, tenantID string) (*contractx.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[f.key(customerID, tenantID)]
	if !ok {
		return nil, fmt.Errorf("%w: cart", contractx.ErrNotFound)
	}
	clone := *cart
	return &clone, nil
}

func (f *fakeCarts) Save(ctx context.Context, cart *contractx.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carts == nil {
		f.carts = make(map[string]*contractx.Cart)
	}
	clone := *cart
	f.carts[f.key(cart.CustomerID, cart.TenantID)] = &clone
	return nil
}

func (f *fakeCarts) Clear(ctx context.Context, customerID, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cart, ok := f.carts[f.key(customerID, tenantID)]; ok {
		cart.Items = nil
		cart.Total = 0
	}
	return nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*contractx.Order
}

func (f *fakeOrders) Insert(ctx context.Context, order *contractx.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orders == nil {
		f.orders = make(map[string]*contractx.Order)
	}
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrders) Get(ctx context.Context, orderID string) (*contractx.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrders) Delete(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, orderID)
	return nil
}

func (f *fakeOrders) SetPaymentLink(ctx context.Context, orderID, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		order.PaymentLink = link
		return nil
	}
	return fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
}

func (f *fakeOrders) SetStatus(ctx context.Context, orderID string, status contractx.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		order.Status = status
		return nil
	}
	return fmt.Errorf("%w: order %s", contractx.ErrNotFound, orderID)
}

type imageSend struct {
	to       string
	imageURL string
}

type fakeChannel struct {
	mu     sync.Mutex
	texts  []string
	images []imageSend
}

func (f *fakeChannel) SendText(ctx context.Context, to, text string, creds contractx.ChannelCreds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChannel) SendImage(ctx context.Context, to, imageURL, caption string, creds contractx.ChannelCreds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, imageSend{to: to, imageURL: imageURL})
	return nil
}

func (f *fakeChannel) imageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

func newTestDeps(t *testing.T, products *fakeProducts) (Deps, *fakeOrders) {
	t.Helper()
	if products == nil {
		products = &fakeProducts{byID: map[string]*contractx.Product{}}
	}
	orders := &fakeOrders{}
	checkout, err := checkoutx.New(&fakeCarts{}, orders, products, "https://checkout.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return Deps{
		Products:            products,
		Checkout:            checkout,
		Channel:             &fakeChannel{},
		WelcomeInitialDelay: time.Millisecond,
		WelcomeImageDelay:   time.Millisecond,
	}, orders
}

func catalogTenant() *contractx.TenantConfig {
	return &contractx.TenantConfig{
		ID:             "tenant-1",
		Variant:        contractx.VariantCatalog,
		WelcomeMessage: "¡Bienvenida!",
		WelcomeImages:  []string{"https://cdn.example.com/cat1.jpg", "https://cdn.example.com/cat2.jpg"},
		IsActive:       true,
	}
}

func TestBuildForTenantCatalogVariant(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	infos, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())
	if len(infos) != 7 {
		t.Fatalf("expected 7 tool infos, got %d", len(infos))
	}
	if executor == nil {
		t.Fatal("executor must not be nil")
	}

	want := map[string]bool{
		ToolSearchCatalog: true, ToolCheckStock: true, ToolAddToCart: true,
		ToolViewCart: true, ToolFinalizeOrder: true, ToolSendPaymentLink: true,
		ToolSendWelcomeCatalog: true,
	}
	for _, info := range infos {
		if !want[info.Name] {
			t.Fatalf("unexpected tool: %s", info.Name)
		}
	}
}

func TestBuildForTenantDirectOrderVariant(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	cfg := catalogTenant()
	cfg.Variant = contractx.VariantDirectOrder

	infos, executor := BuildForTenant(deps, cfg, NewTurnTrace())
	if len(infos) != 1 {
		t.Fatalf("expected 1 tool info, got %d", len(infos))
	}
	if infos[0].Name != ToolCreateDeliveryOrder {
		t.Fatalf("unexpected tool: %s", infos[0].Name)
	}

	// Catalog tools stay unreachable on this variant.
	res, err := executor(context.Background(), ToolAddToCart, map[string]any{"customer": "519"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Error, "unavailable") {
		t.Fatalf("expected unavailable error, got %q", res.Error)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	trace := NewTurnTrace()
	_, executor := BuildForTenant(deps, catalogTenant(), trace)

	res, err := executor(context.Background(), "delete_everything", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected unavailable error")
	}
	if len(trace.Calls()) != 1 {
		t.Fatalf("expected call recorded, got %d", len(trace.Calls()))
	}
}

func TestAddToCartMalformedArgs(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	cases := []map[string]any{
		{"product_id": "p1", "size": "M", "color": "rojo", "unit_price": 10.0}, // missing customer
		{"customer": "519", "product_id": "p1", "color": "rojo", "unit_price": 10.0},
		{"customer": "519", "product_id": "p1", "size": "M", "unit_price": 10.0},
		{"customer": "519", "product_id": "p1", "size": "M", "color": "rojo"},
		{"customer": "519", "product_id": "p1", "size": "M", "color": "rojo", "unit_price": "diez"},
		{"customer": "519", "product_id": "p1", "size": "M", "color": "rojo", "unit_price": 10.0, "quantity": 1.5},
	}
	for i, args := range cases {
		res, err := executor(context.Background(), ToolAddToCart, args)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if res.Error == "" {
			t.Fatalf("case %d: expected argument error", i)
		}
	}
}

func TestAddToCartAndViewCart(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	res, err := executor(context.Background(), ToolAddToCart, map[string]any{
		"customer": "51999000111", "product_id": "prod-1", "quantity": 2.0,
		"size": "M", "color": "rojo", "unit_price": 49.9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}
	if !strings.Contains(res.Result, "99.80") {
		t.Fatalf("expected total in result, got %q", res.Result)
	}

	view, err := executor(context.Background(), ToolViewCart, map[string]any{"customer": "51999000111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(view.Result, "Total: 99.80") {
		t.Fatalf("unexpected summary: %q", view.Result)
	}
}

func TestViewCartEmpty(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	res, err := executor(context.Background(), ToolViewCart, map[string]any{"customer": "51999000111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "Tu carrito esta vacio." {
		t.Fatalf("unexpected result: %q", res.Result)
	}
}

func TestFinalizeOrderRecordsTrace(t *testing.T) {
	t.Parallel()

	deps, orders := newTestDeps(t, nil)
	trace := NewTurnTrace()
	_, executor := BuildForTenant(deps, catalogTenant(), trace)

	if _, err := executor(context.Background(), ToolAddToCart, map[string]any{
		"customer": "51999000111", "product_id": "prod-1",
		"size": "M", "color": "rojo", "unit_price": 25.0,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := executor(context.Background(), ToolFinalizeOrder, map[string]any{
		"customer": "51999000111", "customer_name": "Maria Perez", "address": "Av. Lima 123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}

	pending := trace.OrdersAwaitingLink()
	if len(pending) != 1 {
		t.Fatalf("expected 1 order awaiting link, got %d", len(pending))
	}

	link, err := executor(context.Background(), ToolSendPaymentLink, map[string]any{"order_id": pending[0]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(link.Result, "https://checkout.example.com/pay/"+pending[0]) {
		t.Fatalf("unexpected link result: %q", link.Result)
	}
	if len(trace.OrdersAwaitingLink()) != 0 {
		t.Fatal("link send must settle the pending order")
	}

	stored, err := orders.Get(context.Background(), pending[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PaymentLink == "" {
		t.Fatal("payment link not persisted")
	}
}

func TestFinalizeOrderEmptyCart(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	res, err := executor(context.Background(), ToolFinalizeOrder, map[string]any{
		"customer": "51999000111", "customer_name": "Maria Perez", "address": "Av. Lima 123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "el carrito esta vacio, no hay nada que ordenar" {
		t.Fatalf("unexpected error message: %q", res.Error)
	}
}

func TestSearchCatalogNoResults(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	res, err := executor(context.Background(), ToolSearchCatalog, map[string]any{"query": "vestido de gala"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "No encontre productos que coincidan con esa descripcion." {
		t.Fatalf("unexpected result: %q", res.Result)
	}
}

func TestCheckStockUnknownProduct(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	_, executor := BuildForTenant(deps, catalogTenant(), NewTurnTrace())

	res, err := executor(context.Background(), ToolCheckStock, map[string]any{"product_id": "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "producto no encontrado" {
		t.Fatalf("unexpected error message: %q", res.Error)
	}
}

func TestSendWelcomeCatalogDispatchesImages(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	channel := &fakeChannel{}
	deps.Channel = channel

	trace := NewTurnTrace()
	_, executor := BuildForTenant(deps, catalogTenant(), trace)

	res, err := executor(context.Background(), ToolSendWelcomeCatalog, map[string]any{"customer": "51999000111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Result, "2 imagenes") {
		t.Fatalf("unexpected result: %q", res.Result)
	}
	if trace.WelcomeSends() != 1 {
		t.Fatalf("expected 1 welcome send, got %d", trace.WelcomeSends())
	}

	deadline := time.Now().Add(2 * time.Second)
	for channel.imageCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if channel.imageCount() != 2 {
		t.Fatalf("expected 2 images sent, got %d", channel.imageCount())
	}
}

func TestSendWelcomeCatalogNoImagesConfigured(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	cfg := catalogTenant()
	cfg.WelcomeImages = nil

	trace := NewTurnTrace()
	_, executor := BuildForTenant(deps, cfg, trace)

	res, err := executor(context.Background(), ToolSendWelcomeCatalog, map[string]any{"customer": "51999000111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "Este negocio no tiene imagenes de bienvenida configuradas." {
		t.Fatalf("unexpected result: %q", res.Result)
	}
	if trace.WelcomeSends() != 0 {
		t.Fatalf("no welcome send should be recorded, got %d", trace.WelcomeSends())
	}
}

func TestCartsDoNotLeakAcrossTenants(t *testing.T) {
	t.Parallel()

	deps, _ := newTestDeps(t, nil)
	tenantA := catalogTenant()
	tenantB := catalogTenant()
	tenantB.ID = "tenant-2"

	_, executorA := BuildForTenant(deps, tenantA, NewTurnTrace())
	_, executorB := BuildForTenant(deps, tenantB, NewTurnTrace())

	if _, err := executorA(context.Background(), ToolAddToCart, map[string]any{
		"customer": "51999000111", "product_id": "prod-1",
		"size": "M", "color": "rojo", "unit_price": 49.9,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := executorB(context.Background(), ToolViewCart, map[string]any{"customer": "51999000111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Result != "Tu carrito esta vacio." {
		t.Fatalf("cart leaked across tenants: %q", res.Result)
	}
}

func TestCreateDeliveryOrderHappyPath(t *testing.T) {
	t.Parallel()

	products := &fakeProducts{byID: map[string]*contractx.Product{
		"tenant-1|pollo-entero": {ID: "pollo-entero", TenantID: "tenant-1", Price: 55},
	}}
	deps, _ := newTestDeps(t, products)
	cfg := catalogTenant()
	cfg.Variant = contractx.VariantDirectOrder

	_, executor := BuildForTenant(deps, cfg, NewTurnTrace())

	res, err := executor(context.Background(), ToolCreateDeliveryOrder, map[string]any{
		"items":            []any{map[string]any{"product_id": "pollo-entero", "quantity": 2.0}},
		"customer_name":    "Jorge Ruiz",
		"customer_phone":   "51988777666",
		"delivery_address": "Jr. Union 45",
		"district":         "Surco",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}
	if !strings.Contains(res.Result, "Total: 110.00") {
		t.Fatalf("unexpected result: %q", res.Result)
	}
}

func TestCreateDeliveryOrderUnknownProduct(t *testing.T) {
	t.Parallel()

	deps, orders := newTestDeps(t, nil)
	cfg := catalogTenant()
	cfg.Variant = contractx.VariantDirectOrder

	_, executor := BuildForTenant(deps, cfg, NewTurnTrace())

	res, err := executor(context.Background(), ToolCreateDeliveryOrder, map[string]any{
		"items":            []any{map[string]any{"product_id": "ghost", "quantity": 1.0}},
		"customer_name":    "Jorge Ruiz",
		"customer_phone":   "51988777666",
		"delivery_address": "Jr. Union 45",
		"district":         "Surco",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected product not found error")
	}
	if len(orders.orders) != 0 {
		t.Fatal("nothing must be persisted on failure")
	}
}
