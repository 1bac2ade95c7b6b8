package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashwin275/billing-api/internal/common"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	Svc         *Service
	DefaultDays int
}

// Routes mounts the report endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/overview", h.Overview)
	r.Get("/sales", h.Sales)
	r.Get("/top-products", h.TopProducts)
	r.Get("/top-customers", h.TopCustomers)
	r.Get("/tax", h.Tax)
	r.Get("/export", h.Export)
}

// parseRange reads shop_id, from, to and days query parameters.
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, bool) {
	days := common.AtoiDefault(r.URL.Query().Get("days"), h.DefaultDays)
	if days <= 0 {
		days = h.DefaultDays
	}
	rng := h.Svc.DefaultRange(days)

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from timestamp", nil)
			return Range{}, false
		}
		rng.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to timestamp", nil)
			return Range{}, false
		}
		rng.To = t
	}
	if !rng.From.Before(rng.To) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be before to", nil)
		return Range{}, false
	}
	if raw := r.URL.Query().Get("shop_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid shop_id", nil)
			return Range{}, false
		}
		rng.ShopID = &id
	}
	return rng, true
}

// Overview handles GET /reports/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Overview(r.Context(), rng)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Sales handles GET /reports/sales.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.SalesByDay(r.Context(), rng)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// TopProducts handles GET /reports/top-products.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	out, err := h.Svc.TopProducts(r.Context(), rng, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// TopCustomers handles GET /reports/top-customers.
func (h *Handler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	out, err := h.Svc.TopCustomers(r.Context(), rng, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Tax handles GET /reports/tax.
func (h *Handler) Tax(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.TaxSummary(r.Context(), rng)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Export handles GET /reports/export?report=sales|tax&format=csv|xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	report := r.URL.Query().Get("report")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch report {
	case "sales", "":
		rows, err := h.Svc.SalesByDay(r.Context(), rng)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if format == "xlsx" {
			writeXLSXHeaders(w, "sales.xlsx")
			if err := SalesXLSX(w, rows); err != nil {
				common.WriteError(w, err)
			}
			return
		}
		writeCSVHeaders(w, "sales.csv")
		if err := SalesCSV(w, rows); err != nil {
			common.WriteError(w, err)
		}
	case "tax":
		rows, err := h.Svc.TaxSummary(r.Context(), rng)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if format == "xlsx" {
			writeXLSXHeaders(w, "tax.xlsx")
			if err := TaxXLSX(w, rows); err != nil {
				common.WriteError(w, err)
			}
			return
		}
		writeCSVHeaders(w, "tax.csv")
		if err := TaxCSV(w, rows); err != nil {
			common.WriteError(w, err)
		}
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown report", nil)
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func writeXLSXHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
