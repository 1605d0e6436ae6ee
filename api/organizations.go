package api

import (
	"net/http"

	"org-directory/pkg/ontology"
)

// ListOrganizations filters by building_id, activity_id and name, all
// optional and combined with AND.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	var filter ontology.OrganizationFilter
	if filter.BuildingID, err = queryInt64(r, "building_id"); err != nil {
		h.sendAppError(w, r, err)
		return
	}
	if filter.ActivityID, err = queryInt64(r, "activity_id"); err != nil {
		h.sendAppError(w, r, err)
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		filter.Name = &name
	}

	result, err := h.organizationService.List(r.Context(), filter, page)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, result)
}

func (h *Handlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	org, err := h.organizationService.Create(r.Context(), &req)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusCreated, org)
}

func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	org, err := h.organizationService.Get(r.Context(), id)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, org)
}

// UpdateOrganization serves both PUT and PATCH with patch semantics.
func (h *Handlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	var req ontology.UpdateOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	org, err := h.organizationService.Update(r.Context(), id, &req)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, org)
}
