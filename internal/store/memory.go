package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jongan69/threadiverse/internal/model"
)

// MemoryDraftStore keeps drafts in process memory. Used in tests and when the
// service runs without a database path.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[model.UserID]map[model.DraftID]*model.Draft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		drafts: make(map[model.UserID]map[model.DraftID]*model.Draft),
	}
}

func (m *MemoryDraftStore) ListDraftsFor(ctx context.Context, owner model.UserID) ([]model.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	drafts := make([]model.Draft, 0, len(m.drafts[owner]))
	for _, d := range m.drafts[owner] {
		drafts = append(drafts, *d.Clone())
	}

	slices.SortStableFunc(drafts, func(a, b model.Draft) int {
		return -a.UpdatedAt.Compare(b.UpdatedAt)
	})

	return drafts, nil
}

func (m *MemoryDraftStore) Get(ctx context.Context, owner model.UserID, id model.DraftID) (*model.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if draft, ok := m.drafts[owner][id]; ok {
		return draft.Clone(), nil
	}
	return nil, ErrDraftNotFound
}

func (m *MemoryDraftStore) Save(ctx context.Context, owner model.UserID, draft *model.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.drafts[owner] == nil {
		m.drafts[owner] = make(map[model.DraftID]*model.Draft)
	}
	m.drafts[owner][draft.ID] = draft.Clone()
	return nil
}

func (m *MemoryDraftStore) Delete(ctx context.Context, owner model.UserID, id model.DraftID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.drafts[owner], id)
	return nil
}
