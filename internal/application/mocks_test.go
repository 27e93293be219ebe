package application_test

import (
	"context"
	"sync"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// --- Mock implementations shared across application tests ---

type mockCredentialStore struct {
	mu       sync.Mutex
	creds    []model.Credential
	replaces int
}

func (m *mockCredentialStore) ReplaceAll(_ context.Context, creds []model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	m.replaces++
	return nil
}

func (m *mockCredentialStore) ListAll(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Credential, len(m.creds))
	copy(out, m.creds)
	return out, nil
}

func (m *mockCredentialStore) Get(_ context.Context, id int64) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if c.ID == id {
			cred := c
			return &cred, nil
		}
	}
	return nil, nil
}

func (m *mockCredentialStore) replaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

type mockGroupStore struct {
	mu     sync.Mutex
	groups []model.Group
	active string
}

func (m *mockGroupStore) ReplaceAll(_ context.Context, groups []model.Group, activeGroupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = groups
	m.active = activeGroupID
	return nil
}

func (m *mockGroupStore) ListAll(_ context.Context) ([]model.Group, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups, m.active, nil
}

// mockAdminClient returns canned data and records per-item calls. Any nil
// function field falls back to a no-op success.
type mockAdminClient struct {
	mu           sync.Mutex
	refreshed    []int64
	deleted      []int64
	listResult   []model.Credential
	refreshErr   func(id int64) error
	groupsResult []model.Group
}

func (m *mockAdminClient) ListCredentials(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listResult, nil
}

func (m *mockAdminClient) RefreshCredential(_ context.Context, id int64) error {
	m.mu.Lock()
	m.refreshed = append(m.refreshed, id)
	m.mu.Unlock()

	if m.refreshErr != nil {
		return m.refreshErr(id)
	}
	return nil
}

func (m *mockAdminClient) DeleteCredential(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAdminClient) SetDisabled(_ context.Context, _ int64, _ bool) error { return nil }

func (m *mockAdminClient) SetGroup(_ context.Context, _ int64, _ string) error { return nil }

func (m *mockAdminClient) SetPriority(_ context.Context, _ int64, _ int) error { return nil }

func (m *mockAdminClient) ResetFailureCount(_ context.Context, _ int64) error { return nil }

func (m *mockAdminClient) AddCredential(_ context.Context, _ model.ImportItem) (int64, error) {
	return 1, nil
}

func (m *mockAdminClient) FetchBalance(_ context.Context, id int64) (*model.Balance, error) {
	return &model.Balance{ID: id}, nil
}

func (m *mockAdminClient) ListGroups(_ context.Context) ([]model.Group, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groupsResult, "", nil
}

func (m *mockAdminClient) AddGroup(_ context.Context, name string) (*model.Group, error) {
	return &model.Group{ID: name, Name: name}, nil
}

func (m *mockAdminClient) RenameGroup(_ context.Context, _, _ string) error { return nil }

func (m *mockAdminClient) DeleteGroup(_ context.Context, _ string) error { return nil }

func (m *mockAdminClient) SetActiveGroup(_ context.Context, _ string) error { return nil }

func (m *mockAdminClient) ProxyStatus(_ context.Context) (*model.ProxyStatus, error) {
	return &model.ProxyStatus{Running: true}, nil
}

func (m *mockAdminClient) refreshedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.refreshed))
	copy(out, m.refreshed)
	return out
}
