package invoice

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashwin275/billing-api/internal/common"
	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/shop"
)

// ShopSource loads shops for the print view.
type ShopSource interface {
	Get(ctx context.Context, id uuid.UUID) (shop.Shop, error)
}

// CustomerSource loads customers for the print view.
type CustomerSource interface {
	Get(ctx context.Context, id uuid.UUID) (customer.Customer, error)
}

// Handler exposes invoice endpoints.
type Handler struct {
	Svc            *Service
	Renderer       *Renderer
	Shops          ShopSource
	Customers      CustomerSource
	DefaultPerPage int
	MaxPerPage     int
}

// Routes mounts the invoice endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/issue", h.Issue)
	r.Post("/{id}/void", h.Void)
	r.Post("/{id}/pay", h.Pay)
	r.Get("/{id}/print", h.Print)
}

// List handles GET /invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.DefaultPerPage, h.MaxPerPage)
	f := ListFilter{
		Status: r.URL.Query().Get("status"),
		Sort:   r.URL.Query().Get("sort"),
		Order:  r.URL.Query().Get("order"),
		Limit:  perPage,
		Offset: common.Offset(page, perPage),
	}
	if raw := r.URL.Query().Get("shop_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid shop_id", nil)
			return
		}
		f.ShopID = &id
	}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer_id", nil)
			return
		}
		f.CustomerID = &id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from timestamp", nil)
			return
		}
		f.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to timestamp", nil)
			return
		}
		f.To = &t
	}

	out, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}

// Get handles GET /invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Create handles POST /invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	var createdBy *uuid.UUID
	if raw, ok := common.UserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			createdBy = &id
		}
	}
	inv, err := h.Svc.Create(r.Context(), in, createdBy)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inv})
}

// Update handles PUT /invoices/{id}. Only drafts may be updated; the whole
// invoice is repriced from the submitted items.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	inv, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Issue handles POST /invoices/{id}/issue.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Issue(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Void handles POST /invoices/{id}/void.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Void(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

type payRequest struct {
	Mode string `json:"mode" validate:"required,oneof=cash card upi credit"`
}

// Pay handles POST /invoices/{id}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := common.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	inv, err := h.Svc.Pay(r.Context(), id, req.Mode)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Print handles GET /invoices/{id}/print, returning the printable HTML.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sh, err := h.Shops.Get(r.Context(), inv.ShopID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var cust *customer.Customer
	if inv.CustomerID != nil {
		c, err := h.Customers.Get(r.Context(), *inv.CustomerID)
		if err == nil {
			cust = &c
		}
	}
	html, err := h.Renderer.Render(inv, sh, cust)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice id", nil)
		return uuid.Nil, false
	}
	return id, true
}
