package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sondaumoi/storechain-backend/api/controllers"
	"github.com/sondaumoi/storechain-backend/api/middleware"
	"github.com/sondaumoi/storechain-backend/internal/cart"
	checkoutsvc "github.com/sondaumoi/storechain-backend/internal/checkout"
	internalorders "github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/internal/stock"
	"github.com/sondaumoi/storechain-backend/internal/stores"
	"github.com/sondaumoi/storechain-backend/pkg/config"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
	pkgredis "github.com/sondaumoi/storechain-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Optional entries may be
// nil; the routes that need them degrade to dependency errors.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *pkgredis.Client
	Metrics  prometheus.Gatherer
	Stores   *stores.Service
	Stock    *stock.Repository
	Cart     *cart.Service
	Orders   internalorders.Service
	Checkout *checkoutsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", controllers.StoreList(deps.Stores, logg))
			r.Get("/{storeId}", controllers.StoreDetail(deps.Stores, logg))
			r.Get("/{storeId}/stock/{productId}/availability", controllers.StockAvailability(deps.Stock, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(deps.Cart, logg))
			r.Post("/", controllers.CartAdd(deps.Cart, logg))
			r.Get("/selected", controllers.CartSelected(deps.Cart, logg))
			r.Post("/{productId}/increment", controllers.CartIncrement(deps.Cart, logg))
			r.Post("/{productId}/decrement", controllers.CartDecrement(deps.Cart, logg))
			r.Put("/{productId}/selection", controllers.CartSelect(deps.Cart, logg))
			r.Delete("/{productId}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/mine", controllers.OrdersMine(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStoreOperator(logg))
				r.Post("/{orderId}/accept", controllers.OrderAccept(deps.Orders, logg))
				r.Post("/{orderId}/decline", controllers.OrderDecline(deps.Orders, logg))
				r.Post("/{orderId}/ship", controllers.OrderShip(deps.Orders, logg))
				r.Post("/{orderId}/complete", controllers.OrderComplete(deps.Orders, logg))
			})
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/store", func(r chi.Router) {
			r.Use(middleware.RequireStoreOperator(logg))
			r.Get("/orders", controllers.OrdersForStore(deps.Orders, logg))
			r.Get("/stock", controllers.StockForStore(deps.Stock, logg))
			r.Get("/stock/{productId}", controllers.StockRecordDetail(deps.Stock, logg))
		})
	})

	return r
}
