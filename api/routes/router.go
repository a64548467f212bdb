package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bastianns/tubes-lasti-t08/api/controllers"
	"github.com/bastianns/tubes-lasti-t08/api/middleware"
	"github.com/bastianns/tubes-lasti-t08/internal/auth"
	"github.com/bastianns/tubes-lasti-t08/internal/cart"
	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/internal/reports"
	"github.com/bastianns/tubes-lasti-t08/internal/transactions"
	"github.com/bastianns/tubes-lasti-t08/pkg/auth/session"
	"github.com/bastianns/tubes-lasti-t08/pkg/config"
	"github.com/bastianns/tubes-lasti-t08/pkg/db"
	"github.com/bastianns/tubes-lasti-t08/pkg/logger"
	"github.com/bastianns/tubes-lasti-t08/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            *redis.Client
	Sessions         session.AccessSessionChecker
	MetricsGatherer  prometheus.Gatherer
	AuthService      auth.Service
	InventoryService inventory.Service
	TransactionSvc   transactions.Service
	ReportService    reports.Service
	CartService      cart.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	// A typed nil *redis.Client must not reach the middlewares as a
	// non-nil interface.
	var idemStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	var cachePinger redis.Pinger
	if p.Redis != nil {
		idemStore = p.Redis
		rateStore = p.Redis
		cachePinger = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, cachePinger, logg))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(p.InventoryService, logg))
			r.Post("/", controllers.InventoryCreate(p.InventoryService, logg))
			r.Get("/low-stock", controllers.InventoryLowStock(p.InventoryService, logg))
			r.Route("/{sku}/{batchNumber}", func(r chi.Router) {
				r.Get("/", controllers.InventoryGet(p.InventoryService, logg))
				r.Patch("/", controllers.InventoryUpdate(p.InventoryService, logg))
				r.Delete("/", controllers.InventoryDelete(p.InventoryService, logg))
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(p.TransactionSvc, logg))
			r.Post("/", controllers.TransactionCreate(p.TransactionSvc, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.TransactionGet(p.TransactionSvc, logg))
				r.Put("/", controllers.TransactionUpdate(p.TransactionSvc, logg))
				r.Delete("/", controllers.TransactionDelete(p.TransactionSvc, logg))
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly-sales", controllers.ReportMonthlySales(p.ReportService, logg))
			r.Get("/low-stock", controllers.ReportLowStock(p.ReportService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(p.CartService, logg))
			r.Delete("/", controllers.CartClear(p.CartService, logg))
			r.Post("/items", controllers.CartAddItem(p.CartService, logg))
			r.Delete("/items/{sku}/{batchNumber}", controllers.CartRemoveItem(p.CartService, logg))
			r.Post("/checkout", controllers.CartCheckout(p.CartService, logg))
		})
	})

	return r
}
