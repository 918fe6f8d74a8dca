package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bank-ledger-go/internal/api"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Handler serves the REST surface over a LedgerService
type Handler struct {
	ledger *api.LedgerService
	hub    *notify.Hub
}

func NewHandler(ledger *api.LedgerService, hub *notify.Hub) *Handler {
	return &Handler{ledger: ledger, hub: hub}
}

const defaultMaxBodyBytes = 1 << 20

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg models.ServerConfig) *chi.Mux {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(middleware.RequestSize(maxBody))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", userHeader, adminHeader},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	if h.hub != nil {
		r.Get("/ws", h.hub.ServeWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.CreateUser)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/users/{id}", h.GetUser)
			r.Get("/balance", h.GetBalance)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Get("/recent", h.RecentTransactions)
				r.Patch("/level", h.EditTransactionLevel)
				r.Get("/{id}", h.GetTransaction)
			})

			r.Route("/savings", func(r chi.Router) {
				r.Get("/", h.ListSavings)
				r.Post("/", h.CreateSavings)
				r.Post("/topup", h.TopUpSavings)
				r.Post("/withdraw", h.WithdrawSavings)
			})

			r.Route("/deposits", func(r chi.Router) {
				r.Get("/", h.ListDeposits)
				r.Post("/", h.CreateDeposit)
				r.Patch("/", h.EditDeposit)
			})

			r.Get("/accounts/{accountNumber}", h.GetAccount)

			r.Route("/beneficiaries", func(r chi.Router) {
				r.Get("/", h.ListBeneficiaries)
				r.Post("/", h.CreateBeneficiary)
				r.Delete("/{id}", h.DeleteBeneficiary)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/read", h.MarkNotificationsRead)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/transactions", h.AdminCreateTransaction)
			r.Get("/transactions", h.AdminListTransactions)
			r.Patch("/transactions/{id}/status", h.AdminUpdateTransactionStatus)
			r.Delete("/transactions/{id}", h.AdminPurgeTransaction)

			r.Get("/users/{id}/transactions", h.AdminListUserTransactions)
			r.Patch("/users/{id}/suspension", h.AdminSetSuspension)
			r.Get("/users/{id}/balance/reconcile", h.AdminReconcileBalance)

			r.Get("/savings", h.AdminListSavings)
			r.Delete("/savings/{id}", h.AdminDeleteSavings)

			r.Get("/deposits", h.AdminListDeposits)
			r.Patch("/deposits/approve", h.AdminApproveDeposit)
			r.Delete("/deposits/{id}", h.AdminDeleteDeposit)

			r.Post("/accounts", h.AdminCreateAccount)
			r.Patch("/accounts", h.AdminEditAccount)
			r.Delete("/accounts/{id}", h.AdminDeleteAccount)

			r.Get("/activities", h.AdminListActivities)
		})
	})

	return r
}

// Server owns the HTTP listener and its lifecycle
type Server struct {
	http *http.Server
}

func New(cfg models.ServerConfig, handler http.Handler) *Server {
	if cfg.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.IdleTimeout})
	}
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start serves in the background. Errors other than a clean shutdown are
// reported on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server starting", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
