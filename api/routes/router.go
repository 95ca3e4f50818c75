package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecomarket/marketplace-backend/api/controllers"
	cartcontrollers "github.com/ecomarket/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/ecomarket/marketplace-backend/api/controllers/orders"
	webhookcontrollers "github.com/ecomarket/marketplace-backend/api/controllers/webhooks"
	"github.com/ecomarket/marketplace-backend/api/middleware"
	"github.com/ecomarket/marketplace-backend/internal/cart"
	"github.com/ecomarket/marketplace-backend/internal/impact"
	"github.com/ecomarket/marketplace-backend/internal/orders"
	"github.com/ecomarket/marketplace-backend/internal/payments"
	product "github.com/ecomarket/marketplace-backend/internal/products"
	"github.com/ecomarket/marketplace-backend/internal/reviews"
	"github.com/ecomarket/marketplace-backend/internal/users"
	"github.com/ecomarket/marketplace-backend/pkg/config"
	"github.com/ecomarket/marketplace-backend/pkg/db"
	"github.com/ecomarket/marketplace-backend/pkg/logger"
	"github.com/ecomarket/marketplace-backend/pkg/metrics"
	"github.com/ecomarket/marketplace-backend/pkg/redis"
	"github.com/ecomarket/marketplace-backend/pkg/stripe"
)

// Services groups the domain services mounted on the router.
type Services struct {
	Products  product.Service
	Reviews   reviews.Service
	Cart      cart.Service
	Orders    orders.Service
	Placement orders.Placement
	Payments  payments.Service
	Impact    impact.Service
	Users     users.Service
}

// Deps carries infrastructure handles. Redis and Stripe may be nil when
// they are not configured.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Stripe         *stripe.Client
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(deps Deps, svc Services) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var (
		idempotencyStore redis.IdempotencyStore
		eventGuard       redis.EventGuard
		verifier         webhookcontrollers.EventVerifier
	)
	readiness := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		eventGuard = deps.Redis
		readiness["redis"] = deps.Redis
	}
	if deps.Stripe != nil {
		verifier = deps.Stripe
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/api/webhooks/stripe", webhookcontrollers.StripeWebhook(svc.Payments, verifier, eventGuard, cfg.Stripe.WebhookDedupe, logg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(svc.Products, logg))
		r.Get("/products/{id}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/products/{id}/reviews", controllers.ReviewList(svc.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth, svc.Users, logg))

			r.Get("/auth/user", controllers.AuthUser(svc.Users, logg))

			r.Post("/products", controllers.ProductCreate(svc.Products, logg))
			r.Patch("/products/{id}", controllers.ProductUpdate(svc.Products, logg))
			r.Post("/products/{id}/reviews", controllers.ReviewCreate(svc.Reviews, logg))
			r.Get("/my-products", controllers.MyProducts(svc.Products, logg))
			r.Get("/my-products/export", controllers.MyProductsExport(svc.Products, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartList(svc.Cart, logg))
				r.Post("/", cartcontrollers.CartAdd(svc.Cart, logg))
				r.Put("/{id}", cartcontrollers.CartUpdate(svc.Cart, logg))
				r.Delete("/{id}", cartcontrollers.CartRemove(svc.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{id}", ordercontrollers.Detail(svc.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))
				r.Post("/create-payment-intent", controllers.CreatePaymentIntent(svc.Payments, logg))
				r.Post("/create-order", ordercontrollers.Create(svc.Placement, logg))
			})

			r.Get("/impact", controllers.ImpactSummary(svc.Impact, logg))
		})
	})

	return r
}
