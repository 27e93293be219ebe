package httphandler

import (
	"net/http"

	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// GetSelection returns the currently selected credential ids.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	ids := h.selection.IDs()
	writeJSON(w, http.StatusOK, SelectionResponse{IDs: ids, Count: len(ids)})
}

// ToggleSelection flips membership of one id in the selection set.
func (h *Handler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID *int64 `json:"id" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.selection.Toggle(*req.ID)
	ids := h.selection.IDs()
	writeJSON(w, http.StatusOK, SelectionResponse{IDs: ids, Count: len(ids)})
}

// visibleSelectionRequest names the page whose ids should be selected or
// deselected. Only the ids actually visible under the filter and page are
// touched; selections made on other pages stay intact.
type visibleSelectionRequest struct {
	Select   *bool  `json:"select" validate:"required"`
	Group    string `json:"group"`
	Status   string `json:"status"`
	Search   string `json:"search"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0"`
}

// SetVisibleSelection selects or deselects exactly the ids on the described
// page.
func (h *Handler) SetVisibleSelection(w http.ResponseWriter, r *http.Request) {
	var req visibleSelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bucket, ok := model.ParseBucket(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	group := req.Group
	if group == "" {
		group = application.GroupScopeAll
	}

	visibleIDs, err := h.listSvc.VisibleIDs(r.Context(), application.ListQuery{
		GroupScope: group,
		Bucket:     bucket,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		h.logger.Error("failed to resolve visible ids", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if *req.Select {
		h.selection.SelectVisible(visibleIDs)
	} else {
		h.selection.DeselectVisible(visibleIDs)
	}

	ids := h.selection.IDs()
	writeJSON(w, http.StatusOK, SelectionResponse{IDs: ids, Count: len(ids)})
}

// SelectionFilterChanged applies the configured filter-change policy: the
// selection survives when preservation is on and clears otherwise.
func (h *Handler) SelectionFilterChanged(w http.ResponseWriter, r *http.Request) {
	h.selection.FilterChanged()
	ids := h.selection.IDs()
	writeJSON(w, http.StatusOK, SelectionResponse{IDs: ids, Count: len(ids)})
}

// ClearSelection empties the selection set.
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.selection.Clear()
	writeJSON(w, http.StatusOK, SelectionResponse{IDs: []int64{}, Count: 0})
}
