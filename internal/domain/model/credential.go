package model

import "time"

// Credential is the panel's read-mostly mirror of a pool credential as
// reported by the proxy's admin API. The proxy owns the record; the panel
// caches it between syncs and derives a display status from it.
type Credential struct {
	ID                int64
	Priority          int
	Disabled          bool
	FailureCount      int
	IsCurrent         bool
	RawStatus         RawStatus
	ExpiresAt         *time.Time
	AuthMethod        string
	Email             string
	SubscriptionTitle string
	Remaining         *float64
	GroupID           string
	SyncedAt          time.Time
}

// Group is a named partition of the credential pool. Every credential belongs
// to exactly one group; the proxy guarantees a "default" group always exists.
type Group struct {
	ID              string
	Name            string
	CredentialCount int
}

// Balance is the usage snapshot the admin API reports for a single credential.
type Balance struct {
	ID                int64
	Email             string
	SubscriptionTitle string
	CurrentUsage      float64
	UsageLimit        float64
	Remaining         float64
	UsagePercentage   float64
	NextResetAt       *float64
}

// ImportItem is one credential payload in a bulk import.
type ImportItem struct {
	RefreshToken string
	AuthMethod   string
	ClientID     string
	ClientSecret string
	Priority     int
	GroupID      string
}

// ProxyStatus mirrors the admin API's report of the proxy listener state.
type ProxyStatus struct {
	Running       bool
	Host          string
	Port          int
	ActiveGroupID string // empty means all groups serve traffic
}
