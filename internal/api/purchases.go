package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/policy"
)

type purchaseLine struct {
	DrugID    int64            `json:"drugId" validate:"gt=0"`
	Quantity  int64            `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice" validate:"required,gte=0"`
}

type createPurchaseRequest struct {
	SupplierID int64          `json:"supplierId" validate:"gt=0"`
	Notes      *string        `json:"notes"`
	Items      []purchaseLine `json:"items" validate:"min=1,dive"`
}

type updatePurchaseRequest struct {
	SupplierID *int64                 `json:"supplierId" validate:"omitempty,gt=0"`
	Status     *domain.PurchaseStatus `json:"status" validate:"omitempty,oneof=pending approved received cancelled"`
	Notes      *string                `json:"notes"`
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManagePurchases) {
		return
	}
	purchases, err := h.store.ListPurchases(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManagePurchases) {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.store.GetPurchase(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManagePurchases) {
		return
	}
	var req createPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, _ := currentUser(r)
	in := domain.NewPurchase{
		SupplierID: req.SupplierID,
		UserID:     uid,
		Notes:      nullIfEmpty(req.Notes),
		Items:      make([]domain.NewLine, len(req.Items)),
	}
	for i, item := range req.Items {
		in.Items[i] = domain.NewLine{DrugID: item.DrugID, Quantity: item.Quantity, UnitPrice: *item.UnitPrice}
	}
	p, err := h.store.CreatePurchase(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// updatePurchase applies a partial update. Approving an order needs the
// approval capability on top of purchase management.
func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManagePurchases) {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updatePurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Status != nil && *req.Status == domain.PurchaseApproved && !h.requireCapability(w, r, policy.ApprovePurchases) {
		return
	}
	p, err := h.store.UpdatePurchase(r.Context(), id, domain.PurchaseUpdate{
		SupplierID: req.SupplierID,
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type createSupplierRequest struct {
	Name          string  `json:"name" validate:"notblank"`
	ContactPerson *string `json:"contactPerson"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.store.ListSuppliers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.WriteSuppliers) {
		return
	}
	var req createSupplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sup := &domain.Supplier{
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: nullIfEmpty(req.ContactPerson),
		Email:         nullIfEmpty(req.Email),
		Phone:         nullIfEmpty(req.Phone),
		Address:       nullIfEmpty(req.Address),
	}
	if err := h.store.CreateSupplier(r.Context(), sup); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sup)
}
