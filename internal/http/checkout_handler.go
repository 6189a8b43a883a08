package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/fjod/go_giftpack/internal/checkout"
	"github.com/fjod/go_giftpack/internal/mailer"
	"github.com/fjod/go_giftpack/internal/tracking"
	"go.uber.org/zap"
)

// Checkouter places the order of a profile's cart.
type Checkouter interface {
	Checkout(ctx context.Context, profileID string, c checkout.Cart, user mailer.UserDetails) (*checkout.Order, error)
}

type CheckoutHandler struct {
	sessions Sessions
	checkout Checkouter
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions Sessions, checkout Checkouter, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		checkout: checkout,
		logger:   logger,
	}
}

type CheckoutResponse struct {
	OrderID      string              `json:"order_id"`
	Items        []mailer.Item       `json:"items"`
	PriceDetails mailer.PriceDetails `json:"price_details"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req mailer.UserDetails
	if !decodeJSON(w, r, &req) {
		return
	}

	profileID := getProfileID(r.Context())
	sess := h.sessions.Get(r.Context(), profileID)

	order, err := h.checkout.Checkout(r.Context(), profileID, sess.Cart, req)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
		return
	case errors.Is(err, checkout.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
		return
	case err != nil:
		respondInternal(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:      order.Confirmation.OrderID,
		Items:        order.Confirmation.Items,
		PriceDetails: order.Confirmation.PriceDetails,
	})
}

// VisitTracker records page visits in the background.
type VisitTracker interface {
	Track(v tracking.Visit)
}

type VisitHandler struct {
	tracker VisitTracker
}

func NewVisitHandler(tracker VisitTracker) *VisitHandler {
	return &VisitHandler{tracker: tracker}
}

type VisitRequestDTO struct {
	Page    string `json:"page"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func (h *VisitHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req VisitRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Page == "" {
		respondError(w, http.StatusBadRequest, "invalid_page", "page is required")
		return
	}

	h.tracker.Track(tracking.Visit{
		Page:    req.Page,
		City:    req.City,
		Country: req.Country,
		IP:      clientIP(r),
	})
	w.WriteHeader(http.StatusAccepted)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
