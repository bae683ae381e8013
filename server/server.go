// Package server is the HTTP surface: the channel webhook plus the
// operator endpoints for tenant and customer management.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

type Config struct {
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	VerifyToken string `envconfig:"VERIFY_TOKEN" required:"true"`
}

type Server struct {
	verifyToken string
	dispatcher  *Dispatcher
	tenants     contractx.TenantStore
	auth        contractx.AuthStore

	router chi.Router
}

func New(cfg Config, dispatcher *Dispatcher, tenants contractx.TenantStore, auth contractx.AuthStore) *Server {
	s := &Server{
		verifyToken: cfg.VerifyToken,
		dispatcher:  dispatcher,
		tenants:     tenants,
		auth:        auth,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/webhook", s.verifyWebhook)
	r.Post("/webhook", s.handleWebhook)

	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", s.listTenants)
		r.Post("/", s.createTenant)
		r.Get("/{id}", s.getTenant)
		r.Put("/{id}", s.updateTenant)
		r.Delete("/{id}", s.deleteTenant)

		r.Get("/{id}/customers", s.listAuthorizedCustomers)
		r.Post("/{id}/customers", s.authorizeCustomer)
		r.Delete("/{id}/customers/{customerID}", s.deauthorizeCustomer)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.router)
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}
