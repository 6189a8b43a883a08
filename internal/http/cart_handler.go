package http

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/go_giftpack/internal/cart"
	"github.com/fjod/go_giftpack/internal/catalog"
	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/pricing"
	"github.com/fjod/go_giftpack/internal/service"
	"go.uber.org/zap"
)

// Sessions hands out the in-memory state of a profile.
type Sessions interface {
	Get(ctx context.Context, profileID string) *service.Session
}

type CartHandler struct {
	sessions Sessions
	catalog  Catalog
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCartHandler(sessions Sessions, catalog Catalog, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type AddItemRequestDTO struct {
	ProductID       int64  `json:"product_id"`
	Quantity        int    `json:"quantity"`
	Size            string `json:"size"`
	Color           string `json:"color"`
	Personalization string `json:"personalization"`
	WithBox         bool   `json:"withBox"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type PersonalizationRequestDTO struct {
	Text string `json:"text"`
}

type SubscribeRequestDTO struct {
	Email string `json:"email"`
}

type CartResponse struct {
	Items                 []domain.CartLine   `json:"items"`
	Totals                pricing.Totals      `json:"totals"`
	Notifications         []cart.Notification `json:"notifications"`
	HasNewsletterDiscount bool                `json:"hasNewsletterDiscount"`
}

func cartResponse(sess *service.Session) CartResponse {
	items := sess.Cart.Lines()
	if items == nil {
		items = []domain.CartLine{}
	}
	notes := sess.Inbox.Drain()
	if notes == nil {
		notes = []cart.Notification{}
	}
	return CartResponse{
		Items:                 items,
		Totals:                sess.Cart.Totals(),
		Notifications:         notes,
		HasNewsletterDiscount: sess.Cart.HasNewsletterDiscount(),
	}
}

func (h *CartHandler) session(r *http.Request) *service.Session {
	return h.sessions.Get(r.Context(), getProfileID(r.Context()))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartResponse(h.session(r)))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if !validQuantity(w, req.Quantity) {
		return
	}

	p, err := h.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		respondInternal(w, h.logger, err)
		return
	}

	// catalog sizes are stored lowercase
	req.Size = strings.ToLower(strings.TrimSpace(req.Size))
	available := p.Quantity
	if len(p.Sizes) > 0 {
		n, ok := p.Sizes[req.Size]
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_size", "size is not offered for this product")
			return
		}
		available = n
	}
	if available < req.Quantity {
		respondError(w, http.StatusConflict, "out_of_stock", "not enough stock for this product")
		return
	}
	if pricing.HasPersonalization(req.Personalization) && !p.Personalizable {
		respondError(w, http.StatusBadRequest, "not_personalizable", "product cannot be personalized")
		return
	}

	color := req.Color
	if color == "" {
		color = p.Color
	}

	sess := h.session(r)
	sess.Cart.Add(ctx, domain.CartLine{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		Quantity:        req.Quantity,
		Image:           p.Image,
		Size:            req.Size,
		Color:           color,
		Personalization: req.Personalization,
		WithBox:         req.WithBox,
		TypeProduct:     p.Type,
		ItemGroup:       p.ItemGroup,
		Discount:        p.Discount,
	})

	respondJSON(w, http.StatusCreated, cartResponse(sess))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validQuantity(w, req.Quantity) {
		return
	}

	sess := h.session(r)
	sess.Cart.UpdateQuantity(r.Context(), productID, req.Quantity)
	respondJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	sess := h.session(r)
	sess.Cart.Remove(r.Context(), productID)
	respondJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	sess.Cart.Clear(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *CartHandler) SetPersonalization(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req PersonalizationRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := h.session(r)
	sess.Cart.SetPersonalization(r.Context(), productID, req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
		return
	}

	sess := h.session(r)
	sess.Cart.Subscribe(r.Context(), req.Email)
	respondJSON(w, http.StatusOK, map[string]bool{"eligible": sess.Cart.NewsletterEligible(r.Context())})
}

func (h *CartHandler) ApplyNewsletterDiscount(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	sess.Cart.ApplyNewsletterDiscount(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *CartHandler) RemoveNewsletterDiscount(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	sess.Cart.RemoveNewsletterDiscount(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(sess))
}
