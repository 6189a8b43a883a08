package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Packs    *PackHandler
	Checkout *CheckoutHandler
	Visits   *VisitHandler
}

type RouterOptions struct {
	RequestTimeout time.Duration
	MaxRequestBody int64
	Logger         *zap.Logger
}

func NewRouter(h Handlers, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(opts.Logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.RequestSize(opts.MaxRequestBody))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{id}", h.Products.Get)
		r.Get("/packs", h.Packs.ListTemplates)
		r.Post("/visits", h.Visits.Record)

		r.Group(func(r chi.Router) {
			r.Use(ProfileMiddleware)

			r.Route("/packs/{template}", func(r chi.Router) {
				r.Get("/slots/{index}", h.Packs.GetSlot)
				r.Put("/slots/{index}", h.Packs.PlaceItem)
				r.Delete("/slots/{index}", h.Packs.ClearSlot)
				r.Post("/submit", h.Packs.Submit)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
				r.Put("/personalizations/{product_id}", h.Cart.SetPersonalization)
			})

			r.Route("/newsletter", func(r chi.Router) {
				r.Post("/subscribe", h.Cart.Subscribe)
				r.Post("/discount", h.Cart.ApplyNewsletterDiscount)
				r.Delete("/discount", h.Cart.RemoveNewsletterDiscount)
			})

			r.Post("/checkout", h.Checkout.Checkout)
		})
	})

	return r
}
