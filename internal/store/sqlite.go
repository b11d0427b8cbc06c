package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/util"
	"github.com/jongan69/threadiverse/internal/util/compression"
)

// SQLiteDraftStore stores drafts in the local database. The posts list is
// serialized to JSON and zstd-compressed into a BLOB column; field names in
// that JSON are the round-trip contract with the composer.
type SQLiteDraftStore struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteDraftStore(db db.DB) *SQLiteDraftStore {
	return &SQLiteDraftStore{
		db:         db,
		compressor: compression.ZstdCompressor{},
	}
}

func (s *SQLiteDraftStore) encodePosts(posts []model.Post) ([]byte, string, error) {
	if posts == nil {
		posts = []model.Post{}
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		return nil, "", fmt.Errorf("error marshalling posts: %w", err)
	}
	compressed, err := s.compressor.Compress(raw)
	if err != nil {
		return nil, "", fmt.Errorf("error compressing posts: %w", err)
	}
	return compressed, util.ContentHash(raw), nil
}

func (s *SQLiteDraftStore) decodePosts(blob []byte) ([]model.Post, error) {
	if len(blob) == 0 {
		return []model.Post{}, nil
	}
	raw, err := s.compressor.Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("error decompressing posts: %w", err)
	}
	posts := make([]model.Post, 0)
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("error unmarshalling posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteDraftStore) ListDraftsFor(ctx context.Context, owner model.UserID) ([]model.Draft, error) {
	rows, err := s.db.Query(
		`SELECT id, title, posts, created_at, updated_at FROM drafts WHERE wallet_address = ?`,
		string(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("error querying drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]model.Draft, 0)
	for rows.Next() {
		var draft model.Draft
		var blob []byte

		if err := rows.Scan(&draft.ID, &draft.Title, &blob, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning draft: %w", err)
		}

		posts, err := s.decodePosts(blob)
		if err != nil {
			return nil, err
		}
		draft.Posts = posts

		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}

	slices.SortStableFunc(drafts, func(a, b model.Draft) int {
		return -a.UpdatedAt.Compare(b.UpdatedAt)
	})

	return drafts, nil
}

func (s *SQLiteDraftStore) Get(ctx context.Context, owner model.UserID, id model.DraftID) (*model.Draft, error) {
	row := s.db.QueryRow(
		`SELECT id, title, posts, created_at, updated_at FROM drafts WHERE id = ? AND wallet_address = ?`,
		string(id), string(owner),
	)

	var draft model.Draft
	var blob []byte
	err := row.Scan(&draft.ID, &draft.Title, &blob, &draft.CreatedAt, &draft.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error scanning draft: %w", err)
	}

	posts, err := s.decodePosts(blob)
	if err != nil {
		return nil, err
	}
	draft.Posts = posts

	return &draft, nil
}

func (s *SQLiteDraftStore) Save(ctx context.Context, owner model.UserID, draft *model.Draft) error {
	blob, hash, err := s.encodePosts(draft.Posts)
	if err != nil {
		return err
	}

	// The update arm only fires for the row's own wallet; a colliding draft id
	// from another owner is dropped rather than clobbering the row.
	res, err := s.db.Exec(
		`INSERT INTO drafts (id, wallet_address, title, posts, posts_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   posts = excluded.posts,
		   posts_hash = excluded.posts_hash,
		   updated_at = excluded.updated_at
		 WHERE drafts.wallet_address = excluded.wallet_address`,
		string(draft.ID), string(owner), draft.Title, blob, hash, draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving draft: %w", err)
	}

	storeLogger.Debug().Str("draft_id", string(draft.ID)).Interface("result", res).Msg("Draft saved")
	return nil
}

func (s *SQLiteDraftStore) Delete(ctx context.Context, owner model.UserID, id model.DraftID) error {
	if _, err := s.db.Exec(
		`DELETE FROM drafts WHERE id = ? AND wallet_address = ?`,
		string(id), string(owner),
	); err != nil {
		return fmt.Errorf("error deleting draft: %w", err)
	}
	return nil
}
