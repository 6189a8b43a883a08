package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_giftpack/internal/catalog"
	"github.com/fjod/go_giftpack/internal/composer"
	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/fjod/go_giftpack/internal/packs"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PackHandler struct {
	sessions Sessions
	catalog  Catalog
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPackHandler(sessions Sessions, catalog Catalog, timeout time.Duration, logger *zap.Logger) *PackHandler {
	return &PackHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type TemplateResponse struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Slots        int     `json:"slots"`
	PackagingFee float64 `json:"packagingFee"`
}

type SlotResponse struct {
	Template   string                 `json:"template"`
	Index      int                    `json:"index"`
	Slots      []composer.Slot        `json:"slots"`
	Complete   bool                   `json:"complete"`
	Categories []packs.CategoryFilter `json:"categories"`
	Products   []domain.Product       `json:"products"`
}

type PlaceItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type SubmitPackRequestDTO struct {
	WithBox bool `json:"withBox"`
	// Personalizations maps product ids to text.
	Personalizations map[string]string `json:"personalizations"`
}

func slug(name string) string {
	s := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	return strings.TrimPrefix(s, "pack-")
}

// lookupTemplate accepts the template name or its slug ("duo", "pack-mini-duo").
func lookupTemplate(param string) (packs.Template, bool) {
	if v, err := url.PathUnescape(param); err == nil {
		param = v
	}
	if t, ok := packs.Lookup(param); ok {
		return t, true
	}
	want := slug(param)
	for _, t := range packs.Templates() {
		if slug(t.Name) == want {
			return t, true
		}
	}
	return packs.Template{}, false
}

func (h *PackHandler) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := packs.Templates()
	out := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		out[i] = TemplateResponse{Name: t.Name, Slug: slug(t.Name), Slots: t.Slots, PackagingFee: t.PackagingFee}
	}
	respondJSON(w, http.StatusOK, out)
}

// composer resolves the template and slot from the path. On failure the error
// response has been written.
func (h *PackHandler) composer(w http.ResponseWriter, r *http.Request, withSlot bool) (*composer.Composer, int, bool) {
	t, ok := lookupTemplate(chi.URLParam(r, "template"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown_template", "unknown pack template")
		return nil, 0, false
	}

	slot := 0
	if withSlot {
		var err error
		slot, err = strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || slot < 0 || slot >= t.Slots {
			respondError(w, http.StatusBadRequest, "invalid_slot", "slot index out of range")
			return nil, 0, false
		}
	}

	c, err := h.sessions.Get(r.Context(), getProfileID(r.Context())).Composer(t.Name)
	if err != nil {
		h.composerError(w, err)
		return nil, 0, false
	}
	return c, slot, true
}

func (h *PackHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, slot, ok := h.composer(w, r, true)
	if !ok {
		return
	}
	h.respondSlot(ctx, w, c, slot, r.URL.Query().Get("q"), http.StatusOK)
}

func (h *PackHandler) PlaceItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, slot, ok := h.composer(w, r, true)
	if !ok {
		return
	}

	var req PlaceItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
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

	if err := c.Place(slot, *p); err != nil {
		h.composerError(w, err)
		return
	}
	h.respondSlot(ctx, w, c, slot, "", http.StatusOK)
}

func (h *PackHandler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, slot, ok := h.composer(w, r, true)
	if !ok {
		return
	}
	if err := c.Clear(slot); err != nil {
		h.composerError(w, err)
		return
	}
	h.respondSlot(ctx, w, c, slot, "", http.StatusOK)
}

func (h *PackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.composer(w, r, false)
	if !ok {
		return
	}

	var req SubmitPackRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	opts := composer.SubmitOptions{WithBox: req.WithBox, Personalizations: map[int64]string{}}
	for k, v := range req.Personalizations {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_personalization", "personalization keys must be product ids")
			return
		}
		opts.Personalizations[id] = v
	}

	sess := h.sessions.Get(r.Context(), getProfileID(r.Context()))
	if err := c.Submit(r.Context(), sess.Cart, opts); err != nil {
		h.composerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(sess))
}

func (h *PackHandler) respondSlot(ctx context.Context, w http.ResponseWriter, c *composer.Composer, slot int, search string, status int) {
	categories, products, err := c.Offer(ctx, slot, search)
	if err != nil {
		h.composerError(w, err)
		return
	}
	if categories == nil {
		categories = []packs.CategoryFilter{}
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, status, SlotResponse{
		Template:   c.Template().Name,
		Index:      slot,
		Slots:      c.Slots(),
		Complete:   c.Complete(),
		Categories: categories,
		Products:   products,
	})
}

func (h *PackHandler) composerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, composer.ErrUnknownTemplate):
		respondError(w, http.StatusNotFound, "unknown_template", err.Error())
	case errors.Is(err, composer.ErrSlotOutOfRange):
		respondError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	case errors.Is(err, composer.ErrSlotOccupied):
		respondError(w, http.StatusConflict, "slot_occupied", err.Error())
	case errors.Is(err, composer.ErrCategoryNotAllowed):
		respondError(w, http.StatusUnprocessableEntity, "category_not_allowed", err.Error())
	case errors.Is(err, composer.ErrPackIncomplete):
		respondError(w, http.StatusConflict, "pack_incomplete", err.Error())
	default:
		respondInternal(w, h.logger, err)
	}
}
