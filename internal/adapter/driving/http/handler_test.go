package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// memCredStore is an in-memory CredentialStore for handler tests.
type memCredStore struct {
	mu    sync.Mutex
	creds []model.Credential
}

func (s *memCredStore) ReplaceAll(_ context.Context, creds []model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *memCredStore) ListAll(_ context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Credential, len(s.creds))
	copy(out, s.creds)
	return out, nil
}

func (s *memCredStore) Get(_ context.Context, id int64) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		if c.ID == id {
			cred := c
			return &cred, nil
		}
	}
	return nil, nil
}

type memGroupStore struct {
	mu     sync.Mutex
	groups []model.Group
	active string
}

func (s *memGroupStore) ReplaceAll(_ context.Context, groups []model.Group, active string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups
	s.active = active
	return nil
}

func (s *memGroupStore) ListAll(_ context.Context) ([]model.Group, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups, s.active, nil
}

// stubAdminClient answers every admin call successfully and records refreshes.
type stubAdminClient struct {
	mu        sync.Mutex
	refreshed []int64
	disabled  map[int64]bool
}

func newStubAdminClient() *stubAdminClient {
	return &stubAdminClient{disabled: make(map[int64]bool)}
}

func (c *stubAdminClient) ListCredentials(_ context.Context) ([]model.Credential, error) {
	return nil, nil
}

func (c *stubAdminClient) RefreshCredential(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshed = append(c.refreshed, id)
	return nil
}

func (c *stubAdminClient) DeleteCredential(_ context.Context, _ int64) error { return nil }

func (c *stubAdminClient) SetDisabled(_ context.Context, id int64, disabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled[id] = disabled
	return nil
}

func (c *stubAdminClient) SetGroup(_ context.Context, _ int64, _ string) error { return nil }
func (c *stubAdminClient) SetPriority(_ context.Context, _ int64, _ int) error { return nil }
func (c *stubAdminClient) ResetFailureCount(_ context.Context, _ int64) error { return nil }

func (c *stubAdminClient) AddCredential(_ context.Context, _ model.ImportItem) (int64, error) {
	return 1, nil
}

func (c *stubAdminClient) FetchBalance(_ context.Context, id int64) (*model.Balance, error) {
	return &model.Balance{ID: id, Remaining: 50}, nil
}

func (c *stubAdminClient) ListGroups(_ context.Context) ([]model.Group, string, error) {
	return nil, "", nil
}

func (c *stubAdminClient) AddGroup(_ context.Context, name string) (*model.Group, error) {
	return &model.Group{ID: name, Name: name}, nil
}

func (c *stubAdminClient) RenameGroup(_ context.Context, _, _ string) error { return nil }
func (c *stubAdminClient) DeleteGroup(_ context.Context, _ string) error { return nil }
func (c *stubAdminClient) SetActiveGroup(_ context.Context, _ string) error { return nil }

func (c *stubAdminClient) ProxyStatus(_ context.Context) (*model.ProxyStatus, error) {
	return &model.ProxyStatus{Running: true, Host: "127.0.0.1", Port: 9000}, nil
}

func (c *stubAdminClient) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refreshed)
}

type handlerFixture struct {
	mux       *http.ServeMux
	credStore *memCredStore
	selection *application.SelectionManager
	admin     *stubAdminClient
}

// newHandlerFixture wires the full handler stack against in-memory stores
// and a stub admin client. Pass admin=nil for the unconfigured-endpoint case.
func newHandlerFixture(t *testing.T, admin *stubAdminClient, creds []model.Credential) *handlerFixture {
	t.Helper()

	credStore := &memCredStore{creds: creds}
	groupStore := &memGroupStore{
		groups: []model.Group{{ID: "default", Name: "Default", CredentialCount: len(creds)}},
	}

	provider := application.NewAdminClientProvider(nil)
	if admin != nil {
		provider.Replace(admin)
	}

	broker := application.NewBroker()
	syncSvc := application.NewSyncService(provider, credStore, groupStore, broker, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go syncSvc.Start(ctx)

	listSvc := application.NewListService(credStore)
	selection := application.NewSelectionManager(true)
	batchSvc := application.NewBatchService(provider, application.NewJobRegistry(), syncSvc, broker, 10)

	factory := func(baseURL, apiKey string) driven.AdminClient {
		return newStubAdminClient()
	}

	h := NewHandler(credStore, groupStore, provider, factory, listSvc, selection, batchSvc, syncSvc, slog.Default())
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)

	return &handlerFixture{mux: mux, credStore: credStore, selection: selection, admin: admin}
}

func (fx *handlerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	return rec
}

func handlerCreds() []model.Credential {
	past := time.Now().Add(-time.Hour)
	return []model.Credential{
		{ID: 1, GroupID: "default", RawStatus: model.RawStatusNormal, Email: "alice@example.com"},
		{ID: 2, GroupID: "default", RawStatus: model.RawStatusNormal, Disabled: true},
		{ID: 3, GroupID: "default", RawStatus: model.RawStatusNormal, ExpiresAt: &past},
	}
}

func TestHandler_ListCredentials(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CredentialPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Items, 3)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, 3, resp.Counts.Total)
	assert.Equal(t, 1, resp.Counts.Available)
	assert.Equal(t, 1, resp.Counts.Expired)
	assert.Equal(t, 1, resp.Counts.Invalid)
	assert.Equal(t, "normal", resp.Items[0].Status)
	assert.Equal(t, "disabled", resp.Items[1].Status)
	assert.Equal(t, "expired", resp.Items[2].Status)
	assert.False(t, resp.AllVisibleSelected)
}

func TestHandler_ListCredentials_StatusFilterAndCounts(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/credentials?status=available", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CredentialPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Counts still cover the whole group scope, not just the active tab.
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Counts.Total)
}

func TestHandler_ListCredentials_InvalidStatus(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/credentials?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetCredential_NotFound(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/credentials/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SelectionRoundTrip(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/selection/toggle", `{"id": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var sel SelectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Equal(t, []int64{1}, sel.IDs)

	// Select the whole visible page; id 1 stays selected.
	rec = fx.do(t, http.MethodPost, "/api/v1/selection/visible", `{"select": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Equal(t, []int64{1, 2, 3}, sel.IDs)

	// The list now reports every visible row selected.
	rec = fx.do(t, http.MethodGet, "/api/v1/credentials", "")
	var page CredentialPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.AllVisibleSelected)
	assert.Equal(t, 3, page.SelectedCount)
	assert.True(t, page.Items[0].Selected)

	rec = fx.do(t, http.MethodDelete, "/api/v1/selection", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/selection", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Zero(t, sel.Count)
}

func TestHandler_ToggleSelection_MissingID(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/selection/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BatchRefresh_ExplicitIDs(t *testing.T) {
	admin := newStubAdminClient()
	fx := newHandlerFixture(t, admin, handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "ids", "ids": [1, 2, 3]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, "refresh", job.Kind)
	assert.Equal(t, 3, job.Total)

	// Poll until the detached job settles.
	require.Eventually(t, func() bool {
		rec := fx.do(t, http.MethodGet, "/api/v1/batch/jobs/"+job.ID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		var polled JobResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &polled); err != nil {
			return false
		}
		return polled.State == "completed" && polled.Completed == 3
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, admin.refreshCount())
}

func TestHandler_BatchRefresh_ConsumesSelection(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	fx.selection.SelectVisible([]int64{1, 3})

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "selected"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, 2, job.Total)
	assert.Zero(t, fx.selection.Len())
}

func TestHandler_BatchRefresh_EmptySelection(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "selected"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BatchRefresh_NoAdminClient(t *testing.T) {
	fx := newHandlerFixture(t, nil, handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "ids", "ids": [1]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_BatchFilteredScope(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "filtered", "status": "expired"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, 1, job.Total)
}

func TestHandler_BatchMove_RequiresGroupID(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/move", `{"scope": "ids", "ids": [1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BatchImport_Validation(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/batch/import", `{"items": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/v1/batch/import", `{"items": [{"refresh_token": "rt-1"}]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandler_GetJob_NotFound(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/batch/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SingleRefresh(t *testing.T) {
	admin := newStubAdminClient()
	fx := newHandlerFixture(t, admin, handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/credentials/1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, admin.refreshCount())
}

func TestHandler_SingleOps_NoAdminClient(t *testing.T) {
	fx := newHandlerFixture(t, nil, handlerCreds())

	rec := fx.do(t, http.MethodPost, "/api/v1/credentials/1/refresh", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/proxy/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_ListGroups(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GroupsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "default", resp.Groups[0].ID)
}

func TestHandler_SetAdminEndpoint(t *testing.T) {
	// Start unconfigured; updating the endpoint makes admin calls work
	// without a restart.
	fx := newHandlerFixture(t, nil, handlerCreds())

	rec := fx.do(t, http.MethodGet, "/api/v1/settings/admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status["configured"])

	rec = fx.do(t, http.MethodPut, "/api/v1/settings/admin", `{"admin_url": "http://127.0.0.1:9000", "api_key": "secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/settings/admin", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status["configured"])

	// Batch starts are possible now.
	rec = fx.do(t, http.MethodPost, "/api/v1/batch/refresh", `{"scope": "ids", "ids": [1]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandler_SetAdminEndpoint_InvalidURL(t *testing.T) {
	fx := newHandlerFixture(t, nil, handlerCreds())

	rec := fx.do(t, http.MethodPut, "/api/v1/settings/admin", `{"admin_url": "not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	fx := newHandlerFixture(t, newStubAdminClient(), nil)

	rec := fx.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["admin_configured"])
}
