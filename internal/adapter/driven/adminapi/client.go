// Package adminapi implements the AdminClient port against the credential-pool
// proxy's admin REST API.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AdminClient = (*Client)(nil)

// Client implements the driven.AdminClient port over HTTP. Requests carry the
// admin API key in the x-api-key header; GETs go through an in-memory
// httpcache transport so unchanged responses are served from cache when the
// proxy sets validators.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an admin API client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   30 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. This
// constructor is intended for testing, allowing injection of an httptest
// server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// ListCredentials fetches the live state of every credential in the pool.
func (c *Client) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var resp credentialsStatusResponse
	if err := c.do(ctx, http.MethodGet, "/credentials", nil, &resp); err != nil {
		return nil, err
	}

	syncedAt := time.Now().UTC()
	creds := make([]model.Credential, 0, len(resp.Credentials))
	for _, item := range resp.Credentials {
		cred, err := item.toModel(syncedAt)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// RefreshCredential forces a token refresh for one credential. The admin API
// reports refresh failures in the body with a 200 status, so the success
// flag is checked explicitly.
func (c *Client) RefreshCredential(ctx context.Context, id int64) error {
	var resp refreshCredentialResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/credentials/%d/refresh", id), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("refresh credential %d: %s", id, resp.Message)
	}
	return nil
}

// DeleteCredential removes one credential from the pool.
func (c *Client) DeleteCredential(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/credentials/%d", id), nil, nil)
}

// SetDisabled enables or disables one credential.
func (c *Client) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	req := setDisabledRequest{Disabled: disabled}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/credentials/%d/disabled", id), req, nil)
}

// SetGroup moves one credential into the given group.
func (c *Client) SetGroup(ctx context.Context, id int64, groupID string) error {
	req := setGroupRequest{GroupID: groupID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/credentials/%d/group", id), req, nil)
}

// SetPriority changes one credential's scheduling priority.
func (c *Client) SetPriority(ctx context.Context, id int64, priority int) error {
	req := setPriorityRequest{Priority: priority}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/credentials/%d/priority", id), req, nil)
}

// ResetFailureCount zeroes the failure counter and re-enables the credential.
func (c *Client) ResetFailureCount(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/credentials/%d/reset", id), nil, nil)
}

// AddCredential registers a new credential and returns its assigned id.
func (c *Client) AddCredential(ctx context.Context, item model.ImportItem) (int64, error) {
	req := addCredentialRequest{
		RefreshToken: item.RefreshToken,
		AuthMethod:   item.AuthMethod,
		ClientID:     item.ClientID,
		ClientSecret: item.ClientSecret,
		Priority:     item.Priority,
		GroupID:      item.GroupID,
	}

	var resp addCredentialResponse
	if err := c.do(ctx, http.MethodPost, "/credentials", req, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("add credential: %s", resp.Message)
	}
	return resp.CredentialID, nil
}

// FetchBalance retrieves the usage snapshot for one credential.
func (c *Client) FetchBalance(ctx context.Context, id int64) (*model.Balance, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/credentials/%d/balance", id), nil, &resp); err != nil {
		return nil, err
	}

	balance := &model.Balance{
		ID:              resp.ID,
		CurrentUsage:    resp.CurrentUsage,
		UsageLimit:      resp.UsageLimit,
		Remaining:       resp.Remaining,
		UsagePercentage: resp.UsagePercentage,
		NextResetAt:     resp.NextResetAt,
	}
	if resp.Email != nil {
		balance.Email = *resp.Email
	}
	if resp.SubscriptionTitle != nil {
		balance.SubscriptionTitle = *resp.SubscriptionTitle
	}
	return balance, nil
}

// ListGroups returns all groups plus the active group id ("" means all).
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, string, error) {
	var resp groupsResponse
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &resp); err != nil {
		return nil, "", err
	}

	groups := make([]model.Group, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		groups = append(groups, model.Group{
			ID:              g.ID,
			Name:            g.Name,
			CredentialCount: g.CredentialCount,
		})
	}

	var active string
	if resp.ActiveGroupID != nil {
		active = *resp.ActiveGroupID
	}
	return groups, active, nil
}

// AddGroup creates a group and returns it.
func (c *Client) AddGroup(ctx context.Context, name string) (*model.Group, error) {
	req := addGroupRequest{Name: name}

	var resp groupInfo
	if err := c.do(ctx, http.MethodPost, "/groups", req, &resp); err != nil {
		return nil, err
	}
	return &model.Group{
		ID:              resp.ID,
		Name:            resp.Name,
		CredentialCount: resp.CredentialCount,
	}, nil
}

// RenameGroup changes a group's display name.
func (c *Client) RenameGroup(ctx context.Context, id, name string) error {
	req := renameGroupRequest{Name: name}
	return c.do(ctx, http.MethodPut, "/groups/"+id, req, nil)
}

// DeleteGroup removes a group; its credentials fall back to "default".
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+id, nil, nil)
}

// SetActiveGroup restricts proxy traffic to one group ("" means all).
func (c *Client) SetActiveGroup(ctx context.Context, groupID string) error {
	req := setActiveGroupRequest{}
	if groupID != "" {
		req.GroupID = &groupID
	}
	return c.do(ctx, http.MethodPost, "/groups/active", req, nil)
}

// ProxyStatus reports whether the proxy listener is running and where.
func (c *Client) ProxyStatus(ctx context.Context) (*model.ProxyStatus, error) {
	var resp proxyStatusResponse
	if err := c.do(ctx, http.MethodGet, "/proxy/status", nil, &resp); err != nil {
		return nil, err
	}

	status := &model.ProxyStatus{
		Running: resp.Running,
		Host:    resp.Host,
		Port:    resp.Port,
	}
	if resp.ActiveGroupID != nil {
		status.ActiveGroupID = *resp.ActiveGroupID
	}
	return status, nil
}

// do performs one admin API request. A non-2xx response is decoded into an
// *APIError when the body carries the admin error shape; otherwise the raw
// status is reported.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		// Drain so the transport can reuse the connection.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body adminErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
