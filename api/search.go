package api

import (
	"net/http"

	"org-directory/pkg/ontology"
)

func (h *Handlers) SearchRectangle(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	var req ontology.RectangleSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	result, err := h.searchService.Rectangle(r.Context(), &req, page)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, result)
}

func (h *Handlers) SearchRadius(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	var req ontology.RadiusSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	result, err := h.searchService.Radius(r.Context(), &req, page)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, result)
}
