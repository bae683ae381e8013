package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func TestCreateTenantRejectsInvalidVariant(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(&fakeAgent{})
	body := `{"name":"Tienda Luz","routing_key":"111222333","variant":"drive_through"}`
	req := httptest.NewRequest(http.MethodPost, "/tenants/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateTenantAssignsID(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(&fakeAgent{})
	body := `{"name":"Tienda Luz","routing_key":"111222333","variant":"catalog","welcome_message":"Hola"}`
	req := httptest.NewRequest(http.MethodPost, "/tenants/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"`) {
		t.Fatalf("expected generated id in response: %s", rec.Body.String())
	}
}

func TestAuthorizeCustomerEndpoint(t *testing.T) {
	t.Parallel()

	dispatcher, _, _ := testFixture(&fakeAgent{})
	auth := &fakeAuth{}
	srv := New(Config{VerifyToken: "secreto"}, dispatcher, &fakeTenants{}, auth)

	body := `{"customer_id":"51999000111","flow_id":2}`
	req := httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/customers", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	ok, err := auth.IsAuthorized(context.Background(), "51999000111", "tenant-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("customer must be authorized after the call")
	}
}

func TestAuthorizeCustomerMissingID(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(&fakeAgent{})
	req := httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/customers", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetTenantNotFound(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(&fakeAgent{})
	req := httptest.NewRequest(http.MethodGet, "/tenants/ghost", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

var _ contractx.TenantStore = (*fakeTenants)(nil)
var _ contractx.AuthStore = (*fakeAuth)(nil)
