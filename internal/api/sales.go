package api

import (
	"net/http"

	"medeasy/pharmacy/domain"
)

type saleLine struct {
	DrugID   int64 `json:"drugId" validate:"gt=0"`
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

type createSaleRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" validate:"oneof=cash card insurance"`
	CustomerName  *string              `json:"customerName"`
	CustomerPhone *string              `json:"customerPhone"`
	Notes         *string              `json:"notes"`
	Items         []saleLine           `json:"items" validate:"min=1,dive"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.store.ListSales(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sale, err := h.store.GetSale(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// createSale prices each line at the drug's selling price and decrements
// stock atomically; the caller is recorded as the seller.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, _ := currentUser(r)
	in := domain.NewSale{
		UserID:        uid,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  nullIfEmpty(req.CustomerName),
		CustomerPhone: nullIfEmpty(req.CustomerPhone),
		Notes:         nullIfEmpty(req.Notes),
		Items:         make([]domain.NewLine, len(req.Items)),
	}
	for i, item := range req.Items {
		in.Items[i] = domain.NewLine{DrugID: item.DrugID, Quantity: item.Quantity}
	}

	sale, err := h.store.CreateSale(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SaleRecorded(string(sale.PaymentMethod))
	}
	respondJSON(w, http.StatusCreated, sale)
}
