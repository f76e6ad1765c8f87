package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tupmarket/marketplace-backend/api/controllers"
	webhookcontrollers "github.com/tupmarket/marketplace-backend/api/controllers/webhooks"
	"github.com/tupmarket/marketplace-backend/api/middleware"
	addresssvc "github.com/tupmarket/marketplace-backend/internal/addresses"
	cartsvc "github.com/tupmarket/marketplace-backend/internal/cart"
	"github.com/tupmarket/marketplace-backend/internal/delivery"
	ordersvc "github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/internal/settlement"
	"github.com/tupmarket/marketplace-backend/pkg/config"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	CartService     *cartsvc.Service
	AddressService  *addresssvc.Service
	DeliveryGateway *delivery.Gateway
	OrderService    *ordersvc.Service
	Settlement      *settlement.Service
	InvoiceWebhook  webhookcontrollers.InvoiceWebhookService
	CallbackTokens  interface{ CallbackToken() string }
	Registry        *prometheus.Registry
}

// NewRouter assembles the service's HTTP handler.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

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
			"database": p.DBPinger,
			"redis":    p.RedisPinger,
		}))
	})

	if p.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	// Provider callbacks carry their own shared-secret check.
	r.Post("/payment/webhook/", webhookcontrollers.InvoiceWebhook(p.InvoiceWebhook, p.CallbackTokens, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.CartService, logg))
			r.Post("/items", controllers.CartAdd(p.CartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdate(p.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemove(p.CartService, logg))
		})

		r.Post("/shipping/quote", controllers.ShippingQuote(p.DeliveryGateway, p.AddressService, logg))
		r.Post("/checkout", controllers.Checkout(p.Settlement, logg))
		r.Get("/payment/status", controllers.PaymentStatus(p.OrderService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(p.OrderService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.OrderService, logg))
			r.Post("/{orderId}/fulfillment", controllers.OrderFulfillment(p.OrderService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(p.AddressService, logg))
			r.Post("/", controllers.AddressCreate(p.AddressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(p.AddressService, logg))
		})
	})

	return r
}
