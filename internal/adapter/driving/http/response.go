package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of one cached credential.
// Status carries the derived classification computed at render time.
type CredentialResponse struct {
	ID                int64    `json:"id"`
	Priority          int      `json:"priority"`
	Disabled          bool     `json:"disabled"`
	FailureCount      int      `json:"failure_count"`
	IsCurrent         bool     `json:"is_current"`
	Status            string   `json:"status"`
	RawStatus         string   `json:"raw_status"`
	ExpiresAt         *string  `json:"expires_at"`
	AuthMethod        string   `json:"auth_method"`
	Email             string   `json:"email"`
	SubscriptionTitle string   `json:"subscription_title"`
	Remaining         *float64 `json:"remaining"`
	GroupID           string   `json:"group_id"`
	Selected          bool     `json:"selected"`
}

// CredentialPageResponse is the JSON body of the list endpoint: one page of
// credentials plus the tab counts over the group scope and the header
// checkbox state.
type CredentialPageResponse struct {
	Items              []CredentialResponse `json:"items"`
	Page               int                  `json:"page"`
	TotalPages         int                  `json:"total_pages"`
	TotalItems         int                  `json:"total_items"`
	Counts             BucketCountsResponse `json:"counts"`
	SelectedCount      int                  `json:"selected_count"`
	AllVisibleSelected bool                 `json:"all_visible_selected"`
}

// BucketCountsResponse mirrors application.BucketCounts.
type BucketCountsResponse struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Expired   int `json:"expired"`
	Invalid   int `json:"invalid"`
}

// GroupResponse is the JSON representation of one group.
type GroupResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CredentialCount int    `json:"credential_count"`
}

// GroupsResponse lists groups plus the active group id ("" means all).
type GroupsResponse struct {
	Groups        []GroupResponse `json:"groups"`
	ActiveGroupID string          `json:"active_group_id"`
}

// JobResponse reports batch job progress and, once completed, the summary.
type JobResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	State          string `json:"state"`
	Completed      int    `json:"completed"`
	Total          int    `json:"total"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	DisplayReasons string `json:"display_reasons,omitempty"`

	// Full per-item failure detail, available to callers that render more
	// than the bounded summary line.
	Failures []FailureResponse `json:"failures,omitempty"`
}

// FailureResponse pairs a failed target id with its reason.
type FailureResponse struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// SelectionResponse reports the current selection set.
type SelectionResponse struct {
	IDs   []int64 `json:"ids"`
	Count int     `json:"count"`
}

func toCredentialResponse(c model.Credential, now time.Time, selected bool) CredentialResponse {
	resp := CredentialResponse{
		ID:                c.ID,
		Priority:          c.Priority,
		Disabled:          c.Disabled,
		FailureCount:      c.FailureCount,
		IsCurrent:         c.IsCurrent,
		Status:            string(c.DerivedStatus(now)),
		RawStatus:         string(c.RawStatus),
		AuthMethod:        c.AuthMethod,
		Email:             c.Email,
		SubscriptionTitle: c.SubscriptionTitle,
		Remaining:         c.Remaining,
		GroupID:           c.GroupID,
		Selected:          selected,
	}
	if c.ExpiresAt != nil {
		formatted := c.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &formatted
	}
	return resp
}

func toJobResponse(job *model.BatchJob) JobResponse {
	state, completed, total, summary := job.Snapshot()

	resp := JobResponse{
		ID:        job.ID,
		Kind:      string(job.Kind),
		State:     string(state),
		Completed: completed,
		Total:     total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	}

	if state == model.JobCompleted {
		resp.DisplayReasons = summary.DisplayReasons()
		for _, f := range summary.Failures {
			resp.Failures = append(resp.Failures, FailureResponse{ID: f.ID, Reason: f.Reason})
		}
	}
	return resp
}

func toCountsResponse(counts application.BucketCounts) BucketCountsResponse {
	return BucketCountsResponse{
		Total:     counts.Total,
		Available: counts.Available,
		Expired:   counts.Expired,
		Invalid:   counts.Invalid,
	}
}
