package api

import (
	"net/http"

	"org-directory/pkg/ontology"
)

func (h *Handlers) ListBuildings(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	result, err := h.buildingService.List(r.Context(), page)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, result)
}

func (h *Handlers) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateBuildingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	building, err := h.buildingService.Create(r.Context(), &req)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusCreated, building)
}

func (h *Handlers) GetBuilding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	building, err := h.buildingService.Get(r.Context(), id)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, building)
}
