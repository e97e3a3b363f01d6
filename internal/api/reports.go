package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/policy"
	"medeasy/pharmacy/internal/report"
)

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type salesSummary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	SalesCount int64           `json:"salesCount"`
	Revenue    decimal.Decimal `json:"revenue"`
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request, from, to time.Time) {
	if !h.requireCapability(w, r, policy.ViewReports) {
		return
	}
	count, revenue, err := h.store.SalesSummary(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, salesSummary{From: from, To: to, SalesCount: count, Revenue: revenue})
}

// Reports are bucketed by UTC calendar day.
func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	h.summarize(w, r, from, from.AddDate(0, 0, 1))
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	h.summarize(w, r, from, from.AddDate(0, 1, 0))
}

// salesReport lists sales with their items between start_date and end_date,
// both inclusive calendar days. Either bound may be omitted.
func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ViewReports) {
		return
	}
	var from, to time.Time
	startDate := strings.TrimSpace(r.URL.Query().Get("start_date"))
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			h.writeError(w, r, domain.Invalid("start_date", "must be in YYYY-MM-DD format"))
			return
		}
		from = t
	}
	endDate := strings.TrimSpace(r.URL.Query().Get("end_date"))
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			h.writeError(w, r, domain.Invalid("end_date", "must be in YYYY-MM-DD format"))
			return
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		h.writeError(w, r, domain.Invalid("end_date", "must not be before start_date"))
		return
	}

	sales, err := h.store.SalesBetween(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) inventoryWorkbook(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ViewReports) {
		return
	}
	drugs, err := h.store.ListDrugs(r.Context(), "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	now := h.now()
	data, err := report.InventoryWorkbook(drugs, now)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="inventory_%s.xlsx"`, now.Format("20060102_150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
