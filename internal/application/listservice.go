package application

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// GroupScopeAll widens the group filter to the whole pool.
const GroupScopeAll = "all"

// ListQuery describes one page request over the cached credential collection.
type ListQuery struct {
	GroupScope string // GroupScopeAll or a group id
	Bucket     model.Bucket
	Search     string
	Page       int
	PageSize   int
}

// BucketCounts holds the per-tab counts over the group-scoped subset. The UI
// shows tab badges reflecting the group scope regardless of which status tab
// is active, so counts are taken before the status stage of the filter.
type BucketCounts struct {
	Total     int
	Available int
	Expired   int
	Invalid   int
}

// CredentialPage is the assembled result of filtering and slicing one page.
type CredentialPage struct {
	Items      []model.Credential
	Page       int
	TotalPages int
	TotalItems int // matching items across all pages
	Counts     BucketCounts
}

// ListService runs the group/status/search filter pipeline over the cached
// collection and slices the result into pages. Statuses are re-derived
// against a fresh now on every call; nothing about the expiry comparison is
// cached between calls.
type ListService struct {
	store driven.CredentialStore
	now   func() time.Time
}

// NewListService creates a ListService reading from the given store.
func NewListService(store driven.CredentialStore) *ListService {
	return &ListService{store: store, now: time.Now}
}

// Query loads the cached collection and applies the full pipeline: group
// scope, bucket counts over the scoped subset, status filter, search, then
// pagination. The page number is clamped into the valid range, so a page
// left over from a previous filter can never come back empty while matches
// exist.
func (s *ListService) Query(ctx context.Context, q ListQuery) (*CredentialPage, error) {
	creds, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	scoped := filterByGroup(creds, q.GroupScope)
	counts := countBuckets(scoped, now)

	matched := filterByBucket(scoped, q.Bucket, now)
	matched = filterBySearch(matched, q.Search)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	items, page, totalPages := Paginate(matched, q.Page, pageSize)

	return &CredentialPage{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(matched),
		Counts:     counts,
	}, nil
}

// VisibleIDs returns the ids on the requested page under the query. It backs
// select-visible and deselect-visible actions, which only ever touch the
// identifiers currently shown.
func (s *ListService) VisibleIDs(ctx context.Context, q ListQuery) ([]int64, error) {
	page, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(page.Items))
	for _, c := range page.Items {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// FilteredIDs returns every id matching the query across all pages. It backs
// "apply to all visible under the current filter" batch actions.
func (s *ListService) FilteredIDs(ctx context.Context, q ListQuery) ([]int64, error) {
	creds, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	matched := filterByGroup(creds, q.GroupScope)
	matched = filterByBucket(matched, q.Bucket, now)
	matched = filterBySearch(matched, q.Search)

	ids := make([]int64, 0, len(matched))
	for _, c := range matched {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// FilterCredentials applies the full pipeline (group scope, status bucket,
// search) without pagination. The stages commute; the order here only keeps
// intermediate sets small. Exposed for callers that assemble their own pages.
func FilterCredentials(creds []model.Credential, groupScope string, bucket model.Bucket, search string, now time.Time) []model.Credential {
	out := filterByGroup(creds, groupScope)
	out = filterByBucket(out, bucket, now)
	return filterBySearch(out, search)
}

func filterByGroup(creds []model.Credential, groupScope string) []model.Credential {
	if groupScope == "" || groupScope == GroupScopeAll {
		return sortedByPriority(creds)
	}

	out := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		if c.GroupID == groupScope {
			out = append(out, c)
		}
	}
	return sortedByPriority(out)
}

func filterByBucket(creds []model.Credential, bucket model.Bucket, now time.Time) []model.Credential {
	if bucket == "" || bucket == model.BucketAll {
		return creds
	}

	out := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		if c.DerivedStatus(now).InBucket(bucket) {
			out = append(out, c)
		}
	}
	return out
}

// filterBySearch keeps credentials whose decimal id or email contains the
// query, case-insensitively. Credentials without an email can still match
// by id.
func filterBySearch(creds []model.Credential, search string) []model.Credential {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return creds
	}

	out := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		if strings.Contains(strconv.FormatInt(c.ID, 10), query) {
			out = append(out, c)
			continue
		}
		if c.Email != "" && strings.Contains(strings.ToLower(c.Email), query) {
			out = append(out, c)
		}
	}
	return out
}

func countBuckets(creds []model.Credential, now time.Time) BucketCounts {
	counts := BucketCounts{Total: len(creds)}
	for _, c := range creds {
		switch c.DerivedStatus(now) {
		case model.StatusNormal:
			counts.Available++
		case model.StatusExpired:
			counts.Expired++
		case model.StatusInvalid, model.StatusDisabled:
			counts.Invalid++
		}
	}
	return counts
}

// sortedByPriority orders credentials by priority (lower first), then id,
// matching the ordering the admin API itself reports. Sorting a copy keeps
// the caller's slice untouched.
func sortedByPriority(creds []model.Credential) []model.Credential {
	out := make([]model.Credential, len(creds))
	copy(out, creds)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
