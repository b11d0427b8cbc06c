// Package repository maintains the local index of published threads that
// backs the browse views.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/cache"
	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/model"
)

var ErrThreadNotFound = errors.New("thread not found")

type ThreadRepository interface {
	Init() error

	// Recent returns up to limit threads, newest first.
	Recent(ctx context.Context, limit int) ([]model.Thread, error)
	Get(ctx context.Context, id model.ThreadID) (*model.Thread, error)
	ByAuthor(ctx context.Context, author model.UserID) ([]model.Thread, error)

	// Record stores a freshly published thread.
	Record(ctx context.Context, thread model.Thread) error

	// SetRecordNotifier sets a function called whenever a thread is recorded.
	SetRecordNotifier(notifier func(model.ThreadID))
}

type DBThreadRepository struct { // implements ThreadRepository
	db db.DB

	threadsCache *cache.Cache[model.ThreadID, *model.Thread]

	recordNotifier func(model.ThreadID)
}

func NewDBThreadRepository(db db.DB) *DBThreadRepository {
	return &DBThreadRepository{
		db:           db,
		threadsCache: cache.NewCache[model.ThreadID, *model.Thread](),
	}
}

func (r *DBThreadRepository) SetRecordNotifier(notifier func(model.ThreadID)) {
	r.recordNotifier = notifier
}

func (r *DBThreadRepository) Init() error {
	rows, err := r.db.Query(`SELECT id, author, content, media_ref, post_count, created_at FROM threads`)
	if err != nil {
		return fmt.Errorf("error querying threads: %w", err)
	}
	defer rows.Close()

	threads := make(map[model.ThreadID]*model.Thread)
	for rows.Next() {
		var thread model.Thread
		if err := rows.Scan(&thread.ID, &thread.Author, &thread.Content, &thread.MediaRef, &thread.PostCount, &thread.CreatedAt); err != nil {
			return fmt.Errorf("error scanning thread: %w", err)
		}
		threads[thread.ID] = &thread
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating threads: %w", err)
	}

	r.threadsCache.SetTo(threads)
	repoLogger.Info().Int("threads", len(threads)).Msg("Thread index loaded")
	return nil
}

func (r *DBThreadRepository) scanThreads(rows *sql.Rows) ([]model.Thread, error) {
	defer rows.Close()

	threads := make([]model.Thread, 0)
	for rows.Next() {
		var thread model.Thread
		if err := rows.Scan(&thread.ID, &thread.Author, &thread.Content, &thread.MediaRef, &thread.PostCount, &thread.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning thread: %w", err)
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

func (r *DBThreadRepository) Recent(ctx context.Context, limit int) ([]model.Thread, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, author, content, media_ref, post_count, created_at FROM threads ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying recent threads: %w", err)
	}
	return r.scanThreads(rows)
}

func (r *DBThreadRepository) ByAuthor(ctx context.Context, author model.UserID) ([]model.Thread, error) {
	rows, err := r.db.Query(
		`SELECT id, author, content, media_ref, post_count, created_at FROM threads WHERE author = ? ORDER BY created_at DESC`,
		string(author),
	)
	if err != nil {
		return nil, fmt.Errorf("error querying threads by author: %w", err)
	}
	return r.scanThreads(rows)
}

func (r *DBThreadRepository) Get(ctx context.Context, id model.ThreadID) (*model.Thread, error) {
	if thread, ok := r.threadsCache.Get(id); ok {
		return thread, nil
	}

	row := r.db.QueryRow(
		`SELECT id, author, content, media_ref, post_count, created_at FROM threads WHERE id = ?`,
		string(id),
	)

	var thread model.Thread
	err := row.Scan(&thread.ID, &thread.Author, &thread.Content, &thread.MediaRef, &thread.PostCount, &thread.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error scanning thread: %w", err)
	}

	r.threadsCache.Set(thread.ID, &thread)
	return &thread, nil
}

func (r *DBThreadRepository) Record(ctx context.Context, thread model.Thread) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO threads (id, author, content, media_ref, post_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(thread.ID), string(thread.Author), thread.Content, string(thread.MediaRef), thread.PostCount, thread.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error recording thread: %w", err)
	}

	r.threadsCache.Set(thread.ID, &thread)

	repoLogger.Info().Str("thread_id", string(thread.ID)).Msg("Thread recorded")
	if r.recordNotifier != nil {
		go r.recordNotifier(thread.ID)
	}
	return nil
}

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}
