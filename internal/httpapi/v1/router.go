// Package v1 wires the HTTP surface of the voucher ledger.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/tinoosan/voucherledger/internal/dictionary"
	"github.com/tinoosan/voucherledger/internal/idempotency"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/account"
	"github.com/tinoosan/voucherledger/internal/service/entry"
	"github.com/tinoosan/voucherledger/internal/service/party"
	"github.com/tinoosan/voucherledger/internal/service/report"
)

// Store is everything the HTTP layer needs from a storage backend.
type Store interface {
	account.Repo
	account.Writer
	party.Repo
	party.Writer
	entry.Repo
	entry.Writer
	report.SnapshotReader
	idempotency.Store
	PeekCode(ctx context.Context, prefix string) (string, error)
	Currency() string
	Ready(ctx context.Context) error
}

type Config struct {
	PageLimitDefault   int
	PageLimitMax       int
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	SSLRedirect        bool
	Auth               AuthConfig
}

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts  account.Service
	parties   party.Service
	entries   entry.Service
	reports   report.Service
	idem      idempotency.Store
	idemLocks *idempotency.Locks
	ready     func(context.Context) error
	currency  string
	cfg       Config
	log       *slog.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(store Store, cfg Config, logger *slog.Logger, reportOpts ...report.Option) *Server {
	if cfg.PageLimitDefault <= 0 {
		cfg.PageLimitDefault = 10
	}
	if cfg.PageLimitMax <= 0 {
		cfg.PageLimitMax = 100
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.SSLRedirect,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeMessage(w, http.StatusTooManyRequests, "too many requests")
			}),
		))
	}

	s := &Server{
		accounts:  account.New(store, store, store),
		parties:   party.New(store, store, store),
		entries:   entry.New(store, store, store, store.Currency()),
		reports:   report.New(store, reportOpts...),
		idem:      store,
		idemLocks: idempotency.NewLocks(),
		ready:     store.Ready,
		currency:  store.Currency(),
		cfg:       cfg,
		log:       logger,
		rt:        r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Health and metrics stay outside auth and the request timeout
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Group(func(r chi.Router) {
		if auth := authJWT(s.cfg.Auth); auth != nil {
			r.Use(auth)
		}
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
		r.Use(s.idempotent)

		r.Get("/dictionary/account-types", s.getAccountTypes)
		r.Get("/dictionary/entry-kinds", s.getEntryKinds)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.listAccounts)
			r.With(requireJSON).Post("/", s.postAccount)
			r.Get("/utils/next-code", s.nextAccountCode)
			r.Get("/balance-report", s.balanceReport(reportAccounts))
			r.Get("/filter-options", s.filterOptions(reportAccounts))
			r.Get("/{id}", s.getAccount)
			r.Get("/{id}/ledger", s.statement(reportAccounts))
			r.With(requireJSON).Put("/{id}", s.putAccount)
			r.Delete("/{id}", s.deleteAccount)
		})

		for _, kind := range []ledger.PartyKind{ledger.PartyCustomer, ledger.PartySupplier} {
			h := partyHandlers{s: s, kind: kind}
			scope := reportScopeFor(kind)
			r.Route("/"+string(kind)+"s", func(r chi.Router) {
				r.Get("/", h.list)
				r.With(requireJSON).Post("/", h.create)
				r.Get("/utils/next-code", h.nextCode)
				r.Get("/due-balance-report", s.balanceReport(scope))
				r.Get("/filter-options", s.filterOptions(scope))
				r.Get("/{id}", h.get)
				r.Get("/{id}/ledger", s.statement(scope))
				r.With(requireJSON).Put("/{id}", h.update)
				r.Delete("/{id}", h.delete)
			})
		}

		for _, def := range dictionary.EntryKinds() {
			h := entryHandlers{s: s, kind: def.Kind}
			r.Route("/"+def.Route, func(r chi.Router) {
				r.Get("/", h.list)
				r.With(requireJSON).Post("/", h.create)
				r.Get("/utils/next-code", h.nextCode)
				r.Get("/code/{code}", h.getByCode)
				r.Get("/{id}", h.get)
				r.With(requireJSON).Put("/{id}", h.update)
				r.Delete("/{id}", h.delete)
			})
		}
	})
}
