package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, tenants)
}

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var cfg contractx.TenantConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateTenant(&cfg); err != nil {
		writeError(w, err)
		return
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := s.tenants.Create(r.Context(), &cfg); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, cfg)
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := s.tenants.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, tenant)
}

func (s *Server) updateTenant(w http.ResponseWriter, r *http.Request) {
	var cfg contractx.TenantConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg.ID = chi.URLParam(r, "id")
	if err := validateTenant(&cfg); err != nil {
		writeError(w, err)
		return
	}
	if err := s.tenants.Update(r.Context(), &cfg); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, cfg)
}

func (s *Server) deleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listAuthorizedCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.auth.ListAuthorized(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, customers)
}

type authorizeRequest struct {
	CustomerID string `json:"customer_id"`
	FlowID     int    `json:"flow_id"`
}

func (s *Server) authorizeCustomer(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	if err := s.auth.Authorize(r.Context(), req.CustomerID, chi.URLParam(r, "id"), req.FlowID); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "authorized"})
}

func (s *Server) deauthorizeCustomer(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")
	customerID := chi.URLParam(r, "customerID")
	if err := s.auth.Deauthorize(r.Context(), customerID, tenantID); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "deauthorized"})
}

func validateTenant(cfg *contractx.TenantConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: tenant name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.RoutingKey) == "" {
		return fmt.Errorf("%w: routing_key is required", contractx.ErrValidation)
	}
	if cfg.Variant != contractx.VariantCatalog && cfg.Variant != contractx.VariantDirectOrder {
		return fmt.Errorf("%w: variant must be catalog or direct_order", contractx.ErrValidation)
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contractx.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contractx.ErrValidation):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
