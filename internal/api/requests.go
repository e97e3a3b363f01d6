package api

import (
	"net/http"
	"strings"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/policy"
	"medeasy/pharmacy/internal/validation"
)

type requestQuery struct {
	Status   domain.RequestStatus `json:"status" validate:"omitempty,oneof=pending approved rejected completed"`
	Priority domain.Priority      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type createRequestRequest struct {
	Type        domain.RequestType `json:"type" validate:"oneof=stock prescription return other"`
	Title       string             `json:"title" validate:"notblank,max=200"`
	Description string             `json:"description" validate:"notblank"`
	Priority    domain.Priority    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type updateRequestRequest struct {
	Type        *domain.RequestType   `json:"type" validate:"omitempty,oneof=stock prescription return other"`
	Title       *string               `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string               `json:"description" validate:"omitempty,notblank"`
	Priority    *domain.Priority      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *domain.RequestStatus `json:"status" validate:"omitempty,oneof=pending approved rejected completed"`
}

// listRequests returns every request to reviewers and only their own to
// everyone else.
func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := requestQuery{
		Status:   domain.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Priority: domain.Priority(strings.TrimSpace(r.URL.Query().Get("priority"))),
	}
	if err := validation.Struct(q); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, role := currentUser(r)
	requests, err := h.store.ListRequests(r.Context(), domain.RequestFilter{
		UserID:   policy.RequestScope(uid, role),
		Status:   q.Status,
		Priority: q.Priority,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, _ := currentUser(r)
	created := &domain.Request{
		UserID:      uid,
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    req.Priority,
	}
	if err := h.store.CreateRequest(r.Context(), created); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	upd := domain.RequestUpdate{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	uid, role := currentUser(r)
	updated, err := h.store.UpdateRequest(r.Context(), id, upd, func(current domain.Request) error {
		return policy.AuthorizeRequestUpdate(uid, role, current, upd)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.store.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, role := currentUser(r)
	if err := policy.AuthorizeRequestView(uid, role, *req); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}
