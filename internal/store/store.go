// Package store persists thread drafts keyed by owning identity plus draft id.
// Writes are last-write-wins; no transactions are exposed to callers.
package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/model"
)

var ErrDraftNotFound = errors.New("draft not found")

type DraftStore interface {
	// ListDraftsFor returns every draft owned by the identity, most recently
	// updated first.
	ListDraftsFor(ctx context.Context, owner model.UserID) ([]model.Draft, error)

	Get(ctx context.Context, owner model.UserID, id model.DraftID) (*model.Draft, error)

	// Save upserts the full draft snapshot. A concurrent writer on the same
	// draft id clobbers under last-write-wins; this is accepted.
	Save(ctx context.Context, owner model.UserID, draft *model.Draft) error

	Delete(ctx context.Context, owner model.UserID, id model.DraftID) error
}

var storeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}
