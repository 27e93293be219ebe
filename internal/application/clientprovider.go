package application

import (
	"sync"

	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// AdminClientProvider enables runtime hot-swap of the admin API client.
// It holds a mutex-protected reference to the current driven.AdminClient,
// allowing admin URL or API key updates to take effect without restarting
// the panel.
type AdminClientProvider struct {
	mu     sync.RWMutex
	client driven.AdminClient
}

// NewAdminClientProvider creates a provider with the given initial client.
// client may be nil if no admin endpoint is configured at startup.
func NewAdminClientProvider(client driven.AdminClient) *AdminClientProvider {
	return &AdminClientProvider{client: client}
}

// Get returns the current admin client. Callers should check for nil if the
// provider was created without an initial client.
func (p *AdminClientProvider) Get() driven.AdminClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives the new
// value.
func (p *AdminClientProvider) Replace(client driven.AdminClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}
