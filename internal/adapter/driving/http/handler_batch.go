package httphandler

import (
	"net/http"

	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// batchRequest selects the target set for a bulk action. Scope "selected"
// consumes the current selection, "filtered" targets every credential
// matching the given filter across all pages, and "ids" targets an explicit
// list.
type batchRequest struct {
	Scope string  `json:"scope" validate:"required,oneof=selected filtered ids"`
	IDs   []int64 `json:"ids"`

	// Filter parameters, honored when Scope is "filtered".
	Group  string `json:"group"`
	Status string `json:"status"`
	Search string `json:"search"`

	// Move target, honored by the move endpoint.
	GroupID string `json:"group_id"`
}

// resolveTargets produces the frozen target id sequence for a batch request.
// The bool reports whether the selection supplied the targets, in which case
// the selection is consumed once the job starts.
func (h *Handler) resolveTargets(w http.ResponseWriter, r *http.Request, req batchRequest) ([]int64, bool, bool) {
	switch req.Scope {
	case "selected":
		ids := h.selection.IDs()
		if len(ids) == 0 {
			writeError(w, http.StatusBadRequest, "selection is empty")
			return nil, false, false
		}
		return ids, true, true

	case "filtered":
		bucket, ok := model.ParseBucket(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return nil, false, false
		}
		group := req.Group
		if group == "" {
			group = application.GroupScopeAll
		}

		ids, err := h.listSvc.FilteredIDs(r.Context(), application.ListQuery{
			GroupScope: group,
			Bucket:     bucket,
			Search:     req.Search,
		})
		if err != nil {
			h.logger.Error("failed to resolve filtered targets", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return nil, false, false
		}
		if len(ids) == 0 {
			writeError(w, http.StatusBadRequest, "no credentials match the filter")
			return nil, false, false
		}
		return ids, false, true

	default: // "ids", enforced by validation
		if len(req.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "ids must not be empty")
			return nil, false, false
		}
		return req.IDs, false, true
	}
}

// startBatch resolves targets, launches the job, consumes the selection when
// it supplied the targets, and answers 202 with the job handle.
func (h *Handler) startBatch(w http.ResponseWriter, r *http.Request, start func([]int64) (*model.BatchJob, error)) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ids, fromSelection, ok := h.resolveTargets(w, r, req)
	if !ok {
		return
	}

	job, err := start(ids)
	if err != nil {
		if adminUnavailable(w, err) {
			return
		}
		h.logger.Error("failed to start batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if fromSelection {
		h.selection.Clear()
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// BatchRefresh starts a bulk token refresh.
func (h *Handler) BatchRefresh(w http.ResponseWriter, r *http.Request) {
	h.startBatch(w, r, h.batchSvc.StartRefresh)
}

// BatchDelete starts a bulk delete.
func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	h.startBatch(w, r, h.batchSvc.StartDelete)
}

// BatchDisable starts a bulk disable.
func (h *Handler) BatchDisable(w http.ResponseWriter, r *http.Request) {
	h.startBatch(w, r, func(ids []int64) (*model.BatchJob, error) {
		return h.batchSvc.StartSetDisabled(ids, true)
	})
}

// BatchEnable starts a bulk enable.
func (h *Handler) BatchEnable(w http.ResponseWriter, r *http.Request) {
	h.startBatch(w, r, func(ids []int64) (*model.BatchJob, error) {
		return h.batchSvc.StartSetDisabled(ids, false)
	})
}

// BatchMove starts a bulk group move. The request must name a target group.
func (h *Handler) BatchMove(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}

	ids, fromSelection, ok := h.resolveTargets(w, r, req)
	if !ok {
		return
	}

	job, err := h.batchSvc.StartMove(ids, req.GroupID)
	if err != nil {
		if adminUnavailable(w, err) {
			return
		}
		h.logger.Error("failed to start move batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if fromSelection {
		h.selection.Clear()
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// importRequest carries the credential payloads of a bulk import.
type importRequest struct {
	Items []importItemRequest `json:"items" validate:"required,min=1,dive"`
}

type importItemRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	AuthMethod   string `json:"auth_method"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Priority     int    `json:"priority" validate:"gte=0"`
	GroupID      string `json:"group_id"`
}

// BatchImport starts a bulk import of new credentials.
func (h *Handler) BatchImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]model.ImportItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.ImportItem{
			RefreshToken: it.RefreshToken,
			AuthMethod:   it.AuthMethod,
			ClientID:     it.ClientID,
			ClientSecret: it.ClientSecret,
			Priority:     it.Priority,
			GroupID:      it.GroupID,
		})
	}

	job, err := h.batchSvc.StartImport(items)
	if err != nil {
		if adminUnavailable(w, err) {
			return
		}
		h.logger.Error("failed to start import batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// GetJob reports progress for one batch job, or its summary once completed.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job := h.batchSvc.Registry().Get(r.PathValue("id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// EvictJob forgets a job handle. A running job keeps running to completion;
// only the handle is dropped.
func (h *Handler) EvictJob(w http.ResponseWriter, r *http.Request) {
	h.batchSvc.Registry().Evict(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
