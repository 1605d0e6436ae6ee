package api

import (
	"net/http"

	"org-directory/pkg/ontology"
)

func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	tree, err := h.activityService.GetTree(r.Context(), nil)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, tree)
}

func (h *Handlers) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendAppError(w, r, err)
		return
	}

	activity, err := h.activityService.Create(r.Context(), &req)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusCreated, activity)
}

// GetActivity returns the activity with its subtree.
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}

	tree, err := h.activityService.GetTree(r.Context(), &id)
	if err != nil {
		h.sendAppError(w, r, err)
		return
	}
	sendSuccess(w, http.StatusOK, tree[0])
}
