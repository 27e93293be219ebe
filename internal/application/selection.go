package application

import (
	"sort"
	"sync"
)

// SelectionManager tracks the set of credential ids the user has chosen for
// bulk actions. The set only ever changes through explicit user actions:
// toggles, select/deselect-visible, an explicit clear, or a filter change
// when the preserve policy is off. Batch results never add or remove ids
// implicitly, and paging or refiltering never silently drops a selection.
type SelectionManager struct {
	// PreserveOnFilterChange controls whether FilterChanged keeps the
	// current selection. Preserving is the default.
	PreserveOnFilterChange bool

	mu  sync.Mutex
	ids map[int64]bool
}

// NewSelectionManager creates an empty selection with the given filter-change
// policy.
func NewSelectionManager(preserveOnFilterChange bool) *SelectionManager {
	return &SelectionManager{
		PreserveOnFilterChange: preserveOnFilterChange,
		ids:                    make(map[int64]bool),
	}
}

// Toggle flips membership of one id.
func (m *SelectionManager) Toggle(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[id] {
		delete(m.ids, id)
		return
	}
	m.ids[id] = true
}

// SelectVisible adds exactly the given ids (the current page under the
// current filter) to the selection. Ids selected on other pages stay
// selected.
func (m *SelectionManager) SelectVisible(visibleIDs []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range visibleIDs {
		m.ids[id] = true
	}
}

// DeselectVisible removes exactly the given ids from the selection.
func (m *SelectionManager) DeselectVisible(visibleIDs []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range visibleIDs {
		delete(m.ids, id)
	}
}

// AllVisibleSelected reports whether every given id is selected. It returns
// false for an empty visible set, backing a two-state header checkbox with
// no indeterminate state.
func (m *SelectionManager) AllVisibleSelected(visibleIDs []int64) bool {
	if len(visibleIDs) == 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range visibleIDs {
		if !m.ids[id] {
			return false
		}
	}
	return true
}

// Contains reports whether the id is selected.
func (m *SelectionManager) Contains(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[id]
}

// IDs returns the selected ids in ascending order.
func (m *SelectionManager) IDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of selected ids.
func (m *SelectionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

// Clear empties the selection.
func (m *SelectionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[int64]bool)
}

// FilterChanged applies the filter-change policy: the selection survives
// when PreserveOnFilterChange is set and is cleared otherwise.
func (m *SelectionManager) FilterChanged() {
	if m.PreserveOnFilterChange {
		return
	}
	m.Clear()
}
