// Package httphandler is the HTTP driving adapter that serves the panel's
// REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// ClientFactory builds an admin client for a base URL and API key. The
// composition root supplies the real adminapi constructor; tests inject
// fakes.
type ClientFactory func(baseURL, apiKey string) driven.AdminClient

// Handler serves the panel REST API.
type Handler struct {
	credStore  driven.CredentialStore
	groupStore driven.GroupStore
	provider   *application.AdminClientProvider
	newClient  ClientFactory
	listSvc    *application.ListService
	selection  *application.SelectionManager
	batchSvc   *application.BatchService
	syncSvc    *application.SyncService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credStore driven.CredentialStore,
	groupStore driven.GroupStore,
	provider *application.AdminClientProvider,
	newClient ClientFactory,
	listSvc *application.ListService,
	selection *application.SelectionManager,
	batchSvc *application.BatchService,
	syncSvc *application.SyncService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credStore:  credStore,
		groupStore: groupStore,
		provider:   provider,
		newClient:  newClient,
		listSvc:    listSvc,
		selection:  selection,
		batchSvc:   batchSvc,
		syncSvc:    syncSvc,
		logger:     logger,
	}
}

// RegisterAPIRoutes registers all API routes on the given mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.GetCredential)
	mux.HandleFunc("GET /api/v1/credentials/{id}/balance", h.GetBalance)
	mux.HandleFunc("POST /api/v1/credentials/{id}/refresh", h.RefreshCredential)
	mux.HandleFunc("POST /api/v1/credentials/{id}/disabled", h.SetDisabled)
	mux.HandleFunc("POST /api/v1/credentials/{id}/priority", h.SetPriority)
	mux.HandleFunc("POST /api/v1/credentials/{id}/reset", h.ResetFailureCount)
	mux.HandleFunc("POST /api/v1/credentials/{id}/group", h.SetGroup)

	mux.HandleFunc("GET /api/v1/groups", h.ListGroups)
	mux.HandleFunc("POST /api/v1/groups", h.AddGroup)
	mux.HandleFunc("PUT /api/v1/groups/{id}", h.RenameGroup)
	mux.HandleFunc("DELETE /api/v1/groups/{id}", h.DeleteGroup)
	mux.HandleFunc("POST /api/v1/groups/active", h.SetActiveGroup)

	mux.HandleFunc("GET /api/v1/selection", h.GetSelection)
	mux.HandleFunc("POST /api/v1/selection/toggle", h.ToggleSelection)
	mux.HandleFunc("POST /api/v1/selection/visible", h.SetVisibleSelection)
	mux.HandleFunc("POST /api/v1/selection/filter-changed", h.SelectionFilterChanged)
	mux.HandleFunc("DELETE /api/v1/selection", h.ClearSelection)

	mux.HandleFunc("POST /api/v1/batch/refresh", h.BatchRefresh)
	mux.HandleFunc("POST /api/v1/batch/delete", h.BatchDelete)
	mux.HandleFunc("POST /api/v1/batch/disable", h.BatchDisable)
	mux.HandleFunc("POST /api/v1/batch/enable", h.BatchEnable)
	mux.HandleFunc("POST /api/v1/batch/move", h.BatchMove)
	mux.HandleFunc("POST /api/v1/batch/import", h.BatchImport)
	mux.HandleFunc("GET /api/v1/batch/jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /api/v1/batch/jobs/{id}", h.EvictJob)

	mux.HandleFunc("GET /api/v1/settings/admin", h.GetAdminEndpoint)
	mux.HandleFunc("PUT /api/v1/settings/admin", h.SetAdminEndpoint)

	mux.HandleFunc("POST /api/v1/sync", h.Sync)
	mux.HandleFunc("GET /api/v1/proxy/status", h.ProxyStatus)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// queryFromRequest assembles a ListQuery from the request's query string.
// Unknown status values are rejected by the caller via the ok flag.
func queryFromRequest(r *http.Request) (application.ListQuery, bool) {
	q := application.ListQuery{
		GroupScope: r.URL.Query().Get("group"),
		Search:     r.URL.Query().Get("search"),
		Page:       1,
	}
	if q.GroupScope == "" {
		q.GroupScope = application.GroupScopeAll
	}

	bucket, ok := model.ParseBucket(r.URL.Query().Get("status"))
	if !ok {
		return application.ListQuery{}, false
	}
	q.Bucket = bucket

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return application.ListQuery{}, false
		}
		q.Page = page
	}

	if raw := r.URL.Query().Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return application.ListQuery{}, false
		}
		q.PageSize = size
	}

	return q, true
}

// ListCredentials returns one page of the cached collection under the
// requested group scope, status tab, and search, together with tab counts
// and the header checkbox state.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	q, ok := queryFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid list query")
		return
	}

	page, err := h.listSvc.Query(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	visibleIDs := make([]int64, 0, len(page.Items))
	items := make([]CredentialResponse, 0, len(page.Items))
	for _, c := range page.Items {
		visibleIDs = append(visibleIDs, c.ID)
		items = append(items, toCredentialResponse(c, now, h.selection.Contains(c.ID)))
	}

	writeJSON(w, http.StatusOK, CredentialPageResponse{
		Items:              items,
		Page:               page.Page,
		TotalPages:         page.TotalPages,
		TotalItems:         page.TotalItems,
		Counts:             toCountsResponse(page.Counts),
		SelectedCount:      h.selection.Len(),
		AllVisibleSelected: h.selection.AllVisibleSelected(visibleIDs),
	})
}

// GetCredential returns a single cached credential by id.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cred, err := h.credStore.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get credential", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if cred == nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(*cred, time.Now(), h.selection.Contains(id)))
}

// GetBalance proxies the balance query for one credential to the admin API.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	balance, err := client.FetchBalance(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to fetch balance", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// RefreshCredential forces a token refresh for one credential.
func (h *Handler) RefreshCredential(w http.ResponseWriter, r *http.Request) {
	h.singleOp(w, r, func(client driven.AdminClient, id int64) error {
		return client.RefreshCredential(r.Context(), id)
	})
}

// SetDisabled enables or disables one credential.
func (h *Handler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled *bool `json:"disabled" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.singleOp(w, r, func(client driven.AdminClient, id int64) error {
		return client.SetDisabled(r.Context(), id, *req.Disabled)
	})
}

// SetPriority changes one credential's scheduling priority.
func (h *Handler) SetPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority *int `json:"priority" validate:"required,gte=0"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.singleOp(w, r, func(client driven.AdminClient, id int64) error {
		return client.SetPriority(r.Context(), id, *req.Priority)
	})
}

// ResetFailureCount zeroes one credential's failure counter and re-enables it.
func (h *Handler) ResetFailureCount(w http.ResponseWriter, r *http.Request) {
	h.singleOp(w, r, func(client driven.AdminClient, id int64) error {
		return client.ResetFailureCount(r.Context(), id)
	})
}

// SetGroup moves one credential into another group.
func (h *Handler) SetGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID string `json:"group_id" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.singleOp(w, r, func(client driven.AdminClient, id int64) error {
		return client.SetGroup(r.Context(), id, req.GroupID)
	})
}

// singleOp runs one admin mutation for the path id, then refreshes the cached
// collection once.
func (h *Handler) singleOp(w http.ResponseWriter, r *http.Request, op func(driven.AdminClient, int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	if err := op(client, id); err != nil {
		h.logger.Error("credential operation failed", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("post-operation refresh failed", "id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListGroups returns the cached group list and the active group id.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, active, err := h.groupStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list groups", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := GroupsResponse{Groups: make([]GroupResponse, 0, len(groups)), ActiveGroupID: active}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, GroupResponse{ID: g.ID, Name: g.Name, CredentialCount: g.CredentialCount})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddGroup creates a group on the proxy and refreshes the cache.
func (h *Handler) AddGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	group, err := client.AddGroup(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to add group", "name", req.Name, "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("post-operation refresh failed", "error", err)
	}

	writeJSON(w, http.StatusCreated, GroupResponse{ID: group.ID, Name: group.Name, CredentialCount: group.CredentialCount})
}

// RenameGroup changes a group's display name on the proxy.
func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.groupOp(w, r, func(client driven.AdminClient, id string) error {
		return client.RenameGroup(r.Context(), id, req.Name)
	})
}

// DeleteGroup removes a group on the proxy.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	h.groupOp(w, r, func(client driven.AdminClient, id string) error {
		return client.DeleteGroup(r.Context(), id)
	})
}

// SetActiveGroup restricts proxy traffic to one group ("" or absent means all).
func (h *Handler) SetActiveGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID string `json:"group_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	if err := client.SetActiveGroup(r.Context(), req.GroupID); err != nil {
		h.logger.Error("failed to set active group", "group_id", req.GroupID, "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("post-operation refresh failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) groupOp(w http.ResponseWriter, r *http.Request, op func(driven.AdminClient, string) error) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	if err := op(client, id); err != nil {
		h.logger.Error("group operation failed", "group_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("post-operation refresh failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetAdminEndpoint reports whether an admin endpoint is currently configured.
// The API key is never echoed back.
func (h *Handler) GetAdminEndpoint(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"configured": h.provider.Get() != nil})
}

// SetAdminEndpoint swaps the admin client for a new base URL and API key at
// runtime, then pulls a fresh collection through it. The next sync cycle and
// every later admin call use the new endpoint; no restart is needed.
func (h *Handler) SetAdminEndpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminURL string `json:"admin_url" validate:"required,url"`
		APIKey   string `json:"api_key"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	h.provider.Replace(h.newClient(req.AdminURL, req.APIKey))
	h.logger.Info("admin endpoint updated", "base_url", req.AdminURL)

	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("sync after endpoint update failed", "error", err)
		writeError(w, http.StatusBadGateway, "endpoint saved but sync failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Sync triggers an immediate full sync from the admin API.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.syncSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("manual sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "sync failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ProxyStatus proxies the listener status query to the admin API.
func (h *Handler) ProxyStatus(w http.ResponseWriter, r *http.Request) {
	client := h.provider.Get()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return
	}

	status, err := client.ProxyStatus(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch proxy status", "error", err)
		writeError(w, http.StatusBadGateway, "admin api error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Health reports liveness and whether an admin endpoint is configured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"admin_configured": h.provider.Get() != nil,
	})
}

// pathID parses the {id} path segment as an int64, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return 0, false
	}
	return id, true
}

// decodeBody decodes and validates a JSON request body, writing a 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validateRequest(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// adminUnavailable maps ErrNoAdminClient onto a 503 and reports whether it
// matched.
func adminUnavailable(w http.ResponseWriter, err error) bool {
	if errors.Is(err, application.ErrNoAdminClient) {
		writeError(w, http.StatusServiceUnavailable, "no admin endpoint configured")
		return true
	}
	return false
}
