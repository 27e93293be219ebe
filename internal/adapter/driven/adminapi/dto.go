package adminapi

import (
	"fmt"
	"time"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// Wire types for the proxy's admin REST API. Field names follow the API's
// camelCase convention.

type credentialsStatusResponse struct {
	Total       int                    `json:"total"`
	Available   int                    `json:"available"`
	CurrentID   int64                  `json:"currentId"`
	Credentials []credentialStatusItem `json:"credentials"`
}

type credentialStatusItem struct {
	ID                int64    `json:"id"`
	Priority          int      `json:"priority"`
	Disabled          bool     `json:"disabled"`
	FailureCount      int      `json:"failureCount"`
	IsCurrent         bool     `json:"isCurrent"`
	ExpiresAt         *string  `json:"expiresAt"`
	AuthMethod        *string  `json:"authMethod"`
	Email             *string  `json:"email"`
	SubscriptionTitle *string  `json:"subscriptionTitle"`
	Remaining         *float64 `json:"remaining"`
	Status            string   `json:"status"`
	GroupID           string   `json:"groupId"`
}

type addCredentialRequest struct {
	RefreshToken string `json:"refreshToken"`
	AuthMethod   string `json:"authMethod,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Priority     int    `json:"priority"`
	GroupID      string `json:"groupId,omitempty"`
}

type addCredentialResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CredentialID int64  `json:"credentialId"`
}

type refreshCredentialResponse struct {
	ID      int64  `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

type setPriorityRequest struct {
	Priority int `json:"priority"`
}

type setGroupRequest struct {
	GroupID string `json:"groupId"`
}

type balanceResponse struct {
	ID                int64    `json:"id"`
	Email             *string  `json:"email"`
	SubscriptionTitle *string  `json:"subscriptionTitle"`
	CurrentUsage      float64  `json:"currentUsage"`
	UsageLimit        float64  `json:"usageLimit"`
	Remaining         float64  `json:"remaining"`
	UsagePercentage   float64  `json:"usagePercentage"`
	NextResetAt       *float64 `json:"nextResetAt"`
}

type groupInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CredentialCount int    `json:"credentialCount"`
}

type groupsResponse struct {
	Groups        []groupInfo `json:"groups"`
	ActiveGroupID *string     `json:"activeGroupId"`
}

type addGroupRequest struct {
	Name string `json:"name"`
}

type renameGroupRequest struct {
	Name string `json:"name"`
}

type setActiveGroupRequest struct {
	GroupID *string `json:"groupId"`
}

type proxyStatusResponse struct {
	Running       bool    `json:"running"`
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	ActiveGroupID *string `json:"activeGroupId"`
}

type adminErrorResponse struct {
	Error adminErrorBody `json:"error"`
}

type adminErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError is a structured error body returned by the admin API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("admin api returned status %d", e.StatusCode)
}

func (item credentialStatusItem) toModel(syncedAt time.Time) (model.Credential, error) {
	cred := model.Credential{
		ID:           item.ID,
		Priority:     item.Priority,
		Disabled:     item.Disabled,
		FailureCount: item.FailureCount,
		IsCurrent:    item.IsCurrent,
		RawStatus:    model.RawStatus(item.Status),
		GroupID:      item.GroupID,
		Remaining:    item.Remaining,
		SyncedAt:     syncedAt,
	}

	if item.AuthMethod != nil {
		cred.AuthMethod = *item.AuthMethod
	}
	if item.Email != nil {
		cred.Email = *item.Email
	}
	if item.SubscriptionTitle != nil {
		cred.SubscriptionTitle = *item.SubscriptionTitle
	}
	if item.ExpiresAt != nil && *item.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, *item.ExpiresAt)
		if err != nil {
			return model.Credential{}, fmt.Errorf("parse expiresAt for credential %d: %w", item.ID, err)
		}
		cred.ExpiresAt = &parsed
	}

	return cred, nil
}
