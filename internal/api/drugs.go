package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/catalog"
	"medeasy/pharmacy/internal/policy"
	"medeasy/pharmacy/internal/validation"
)

const (
	defaultExpiryWindowDays = 30
	maxImportBytes          = 10 << 20
)

// drugView is a drug with its stock status as of the request.
type drugView struct {
	domain.Drug
	Status domain.StockStatus `json:"status"`
}

func (h *Handler) view(d domain.Drug) drugView {
	return drugView{Drug: d, Status: d.Status(h.now())}
}

func (h *Handler) views(drugs []domain.Drug) []drugView {
	out := make([]drugView, len(drugs))
	for i, d := range drugs {
		out[i] = h.view(d)
	}
	return out
}

type createDrugRequest struct {
	Name         string           `json:"name" validate:"notblank"`
	GenericName  *string          `json:"genericName"`
	Dosage       string           `json:"dosage" validate:"notblank"`
	Form         string           `json:"form" validate:"notblank"`
	Manufacturer string           `json:"manufacturer" validate:"notblank"`
	BatchNumber  string           `json:"batchNumber" validate:"notblank"`
	ExpiryDate   string           `json:"expiryDate" validate:"required,date"`
	Quantity     *int64           `json:"quantity" validate:"required,gte=0"`
	UnitPrice    *decimal.Decimal `json:"unitPrice" validate:"required,gte=0"`
	SellingPrice *decimal.Decimal `json:"sellingPrice" validate:"required,gte=0"`
	MinimumStock *int64           `json:"minimumStock" validate:"omitempty,gte=0"`
	Category     string           `json:"category" validate:"notblank"`
	Description  *string          `json:"description"`
	Barcode      *string          `json:"barcode"`
}

type updateDrugRequest struct {
	Name         *string          `json:"name" validate:"omitempty,notblank"`
	GenericName  *string          `json:"genericName"`
	Dosage       *string          `json:"dosage" validate:"omitempty,notblank"`
	Form         *string          `json:"form" validate:"omitempty,notblank"`
	Manufacturer *string          `json:"manufacturer" validate:"omitempty,notblank"`
	BatchNumber  *string          `json:"batchNumber" validate:"omitempty,notblank"`
	ExpiryDate   *string          `json:"expiryDate" validate:"omitempty,date"`
	Quantity     *int64           `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice    *decimal.Decimal `json:"unitPrice" validate:"omitempty,gte=0"`
	SellingPrice *decimal.Decimal `json:"sellingPrice" validate:"omitempty,gte=0"`
	MinimumStock *int64           `json:"minimumStock" validate:"omitempty,gte=0"`
	Category     *string          `json:"category" validate:"omitempty,notblank"`
	Description  *string          `json:"description"`
	Barcode      *string          `json:"barcode"`
}

func (h *Handler) listDrugs(w http.ResponseWriter, r *http.Request) {
	drugs, err := h.store.ListDrugs(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.views(drugs))
}

func (h *Handler) getDrug(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.store.GetDrug(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(*d))
}

// drugStatuses classifies every drug, optionally keeping one status.
func (h *Handler) drugStatuses(w http.ResponseWriter, r *http.Request) {
	want := domain.StockStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if want != "" && !want.Valid() {
		h.writeError(w, r, domain.Invalid("status", "oneof=in-stock low-stock out-of-stock expired"))
		return
	}
	drugs, err := h.store.ListDrugs(r.Context(), "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	statuses := domain.ClassifyAll(drugs, h.now())
	if want != "" {
		filtered := statuses[:0]
		for _, s := range statuses {
			if s.Status == want {
				filtered = append(filtered, s)
			}
		}
		statuses = filtered
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *Handler) drugStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.store.GetDrug(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.ClassifyAll([]domain.Drug{*d}, h.now())[0])
}

// expiringDrugs lists drugs that expire within ?days= (default 30), expired
// ones included.
func (h *Handler) expiringDrugs(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiryWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, r, domain.Invalid("days", "gte=0"))
			return
		}
		days = parsed
	}
	drugs, err := h.store.ExpiringDrugs(r.Context(), h.now().AddDate(0, 0, days))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.views(drugs))
}

func (h *Handler) createDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.WriteDrugs) {
		return
	}
	var req createDrugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	expiry, _ := validation.ParseDate(req.ExpiryDate)
	d := &domain.Drug{
		Name:         strings.TrimSpace(req.Name),
		GenericName:  nullIfEmpty(req.GenericName),
		Dosage:       req.Dosage,
		Form:         req.Form,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   expiry,
		Quantity:     *req.Quantity,
		UnitPrice:    *req.UnitPrice,
		SellingPrice: *req.SellingPrice,
		MinimumStock: domain.DefaultMinimumStock,
		Category:     req.Category,
		Description:  nullIfEmpty(req.Description),
		Barcode:      nullIfEmpty(req.Barcode),
	}
	if req.MinimumStock != nil {
		d.MinimumStock = *req.MinimumStock
	}
	if err := h.store.CreateDrug(r.Context(), d); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.view(*d))
}

func (h *Handler) updateDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.WriteDrugs) {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateDrugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	upd := domain.DrugUpdate{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Form:         req.Form,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		SellingPrice: req.SellingPrice,
		MinimumStock: req.MinimumStock,
		Category:     req.Category,
		GenericName:  req.GenericName,
		Description:  req.Description,
		Barcode:      req.Barcode,
	}
	if req.ExpiryDate != nil {
		expiry, _ := validation.ParseDate(*req.ExpiryDate)
		upd.ExpiryDate = &expiry
	}
	d, err := h.store.UpdateDrug(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(*d))
}

func (h *Handler) deleteDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.WriteDrugs) {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.DeleteDrug(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Imported int                `json:"imported"`
	Parsed   int                `json:"parsed"`
	Skipped  []catalog.RowError `json:"skipped"`
}

// importDrugs accepts a CSV or XLSX catalog either as a multipart "file"
// field or as the raw request body.
func (h *Handler) importDrugs(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ImportDrugs) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			h.writeError(w, r, domain.Invalid("file", "required"))
			return
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(src)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, domain.Invalid("file", fmt.Sprintf("max=%d bytes", maxImportBytes)))
			return
		}
		h.writeError(w, r, err)
		return
	}
	res, err := catalog.Parse(data)
	if err != nil {
		h.writeError(w, r, domain.Invalid("file", err.Error()))
		return
	}
	n, err := h.store.ImportDrugs(r.Context(), res.Drugs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []catalog.RowError{}
	}
	respondJSON(w, http.StatusOK, importResponse{Imported: n, Parsed: len(res.Drugs), Skipped: skipped})
}
