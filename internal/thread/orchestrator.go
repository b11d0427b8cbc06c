// Package thread coordinates a draft's lifecycle: editing posts, debounced
// autosave into the draft store, and the publish sequence against the upload
// and publish collaborators.
package thread

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/composer"
	"github.com/jongan69/threadiverse/internal/identity"
	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/publish"
	"github.com/jongan69/threadiverse/internal/store"
)

var (
	ErrNotSignedIn     = errors.New("connect your wallet and sign in to publish")
	ErrEmptyThread     = errors.New("add at least one post to your thread")
	ErrPublishInFlight = errors.New("a publish is already in progress")
	ErrPostNotFound    = errors.New("post not found in draft")

	// ErrPublishFailed is the single generic failure surfaced for any
	// collaborator error during publish. The draft stays intact for retry.
	ErrPublishFailed = errors.New("failed to publish thread, please try again")
)

const defaultAutosaveDebounce = 3 * time.Second

// Recorder receives successfully published threads for the local index.
type Recorder interface {
	Record(ctx context.Context, thread model.Thread) error
}

type Config struct {
	Store     store.DraftStore
	Identity  identity.SessionSource
	Uploader  publish.Uploader
	Publisher publish.Publisher

	// Threads, when set, records published threads for browsing.
	Threads Recorder

	// AutosaveDebounce is the quiet period after the last edit before the
	// draft snapshot is persisted. Zero selects the default.
	AutosaveDebounce time.Duration

	// OnSaved is invoked after every successful autosave write.
	OnSaved func(model.DraftID)
}

// Orchestrator mediates all edits to one draft. Every mutation restarts the
// autosave debounce timer; Publish drives the upload fan-out and the single
// publish call. Safe for use from concurrent request handlers.
type Orchestrator struct {
	cfg Config

	mu         sync.Mutex
	owner      model.UserID
	draft      *model.Draft
	timer      *time.Timer
	submitting bool
	published  model.ThreadID
}

func New(cfg Config) *Orchestrator {
	if cfg.AutosaveDebounce <= 0 {
		cfg.AutosaveDebounce = defaultAutosaveDebounce
	}
	return &Orchestrator{cfg: cfg}
}

// Start binds the orchestrator to a draft: a fresh one when draftID is empty,
// otherwise the stored draft resumed by id. The draft id is assigned here
// once and never regenerated.
func (o *Orchestrator) Start(ctx context.Context, owner model.UserID, draftID model.DraftID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.owner = owner

	if draftID == "" {
		now := time.Now().UTC()
		o.draft = &model.Draft{
			ID:        model.NewDraftID(),
			Posts:     []model.Post{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}

	draft, err := o.cfg.Store.Get(ctx, owner, draftID)
	if err != nil {
		return err
	}
	o.draft = draft
	return nil
}

// Owner returns the identity this draft session is bound to.
func (o *Orchestrator) Owner() model.UserID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owner
}

// Draft returns a snapshot of the current draft state.
func (o *Orchestrator) Draft() model.Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.draft.Clone()
}

// Published reports the terminal publish outcome, if any.
func (o *Orchestrator) Published() (model.ThreadID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.published, o.published != ""
}

func (o *Orchestrator) SetTitle(title string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Title = title
	o.scheduleAutosaveLocked()
}

// AddPost appends a new post with the template's empty content and returns a
// copy of it.
func (o *Orchestrator) AddPost(templateID model.TemplateID) model.Post {
	o.mu.Lock()
	defer o.mu.Unlock()

	post := model.Post{
		ID:         model.NewPostID(),
		TemplateID: templateID,
		Content:    model.EmptyContent(templateID),
	}
	o.draft.Posts = append(o.draft.Posts, post)
	o.scheduleAutosaveLocked()

	post.Content = post.Content.Clone()
	return post
}

// RemovePost filters the post out by id; the remainder keeps its order.
func (o *Orchestrator) RemovePost(postID model.PostID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, p := range o.draft.Posts {
		if p.ID == postID {
			o.draft.Posts = append(o.draft.Posts[:i], o.draft.Posts[i+1:]...)
			o.scheduleAutosaveLocked()
			return true
		}
	}
	return false
}

// UpdatePost replaces a post's content wholesale.
func (o *Orchestrator) UpdatePost(postID model.PostID, content model.Content) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.draft.Posts {
		if o.draft.Posts[i].ID == postID {
			o.draft.Posts[i].Content = content
			o.scheduleAutosaveLocked()
			return true
		}
	}
	return false
}

// Composer returns a composer over a copy of the post; its change
// notifications are merged back through UpdatePost.
func (o *Orchestrator) Composer(postID model.PostID) (*composer.Composer, error) {
	o.mu.Lock()
	var found *model.Post
	for _, p := range o.draft.Posts {
		if p.ID == postID {
			copied := p
			if p.Content != nil {
				copied.Content = p.Content.Clone()
			}
			found = &copied
			break
		}
	}
	o.mu.Unlock()

	if found == nil {
		return nil, ErrPostNotFound
	}

	return composer.New(found, func(content model.Content) {
		o.UpdatePost(postID, content)
	}), nil
}

// scheduleAutosaveLocked restarts the debounce timer. A pending autosave is
// superseded, not merged: the snapshot written is whatever the draft holds
// when the timer finally fires.
func (o *Orchestrator) scheduleAutosaveLocked() {
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.cfg.AutosaveDebounce, func() {
		if err := o.Autosave(context.Background()); err != nil {
			threadLogger.Error().Err(err).Msg("Error autosaving draft")
		}
	})
}

// Autosave persists the full draft snapshot with UpdatedAt refreshed. Writes
// are last-write-wins per draft id. Skipped when no identity owns the draft.
func (o *Orchestrator) Autosave(ctx context.Context) error {
	o.mu.Lock()
	if o.draft == nil || o.owner == "" {
		o.mu.Unlock()
		return nil
	}
	now := time.Now().UTC()
	o.draft.UpdatedAt = now
	snapshot := o.draft.Clone()
	owner := o.owner
	o.mu.Unlock()

	if err := o.cfg.Store.Save(ctx, owner, snapshot); err != nil {
		return err
	}

	threadLogger.Debug().Str("draft_id", string(snapshot.ID)).Msg("Draft autosaved")
	if o.cfg.OnSaved != nil {
		o.cfg.OnSaved(snapshot.ID)
	}
	return nil
}

// Flush persists immediately if an autosave is pending.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.timer != nil && o.timer.Stop()
	o.mu.Unlock()

	if !pending {
		return nil
	}
	return o.Autosave(ctx)
}

// Publish runs the publish sequence: preconditions, concurrent per-post
// content uploads joined all-or-nothing, then exactly one publish call. On
// any collaborator failure the draft is left intact and the orchestrator
// returns to an editable state.
func (o *Orchestrator) Publish(ctx context.Context) (model.ThreadID, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return "", ErrPublishInFlight
	}

	user, ok := o.cfg.Identity.Current(ctx)
	if !ok {
		o.mu.Unlock()
		return "", ErrNotSignedIn
	}
	if len(o.draft.Posts) == 0 {
		o.mu.Unlock()
		return "", ErrEmptyThread
	}

	o.submitting = true
	snapshot := o.draft.Clone()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	refs, err := o.uploadAll(ctx, snapshot.Posts)
	if err != nil {
		threadLogger.Error().Err(err).Str("draft_id", string(snapshot.ID)).Msg("Error uploading thread content")
		return "", ErrPublishFailed
	}

	content := strings.TrimSpace(snapshot.Title)
	if content == "" {
		content = primaryText(snapshot.Posts[0])
	}
	if content == "" {
		content = "New Thread"
	}

	payload := publish.NewThreadPayload(content, refs[0], len(snapshot.Posts))

	threadID, err := o.cfg.Publisher.Publish(ctx, payload)
	if err != nil {
		threadLogger.Error().Err(err).Str("draft_id", string(snapshot.ID)).Msg("Error creating thread")
		return "", ErrPublishFailed
	}

	o.mu.Lock()
	o.published = threadID
	o.mu.Unlock()

	// The source draft is retained after publish, not deleted.
	if o.cfg.Threads != nil {
		thread := model.Thread{
			ID:        threadID,
			Author:    user,
			Content:   content,
			MediaRef:  refs[0],
			PostCount: len(snapshot.Posts),
			CreatedAt: time.Now().UTC(),
		}
		if err := o.cfg.Threads.Record(ctx, thread); err != nil {
			threadLogger.Error().Err(err).Str("thread_id", string(threadID)).Msg("Error recording published thread")
		}
	}

	return threadID, nil
}

// uploadAll issues every upload concurrently and waits for all to settle.
// The first failure cancels the remaining uploads; already-started uploads
// are not guaranteed to stop.
func (o *Orchestrator) uploadAll(ctx context.Context, posts []model.Post) ([]model.ContentRef, error) {
	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	refs := make([]model.ContentRef, len(posts))
	errs := make([]error, len(posts))

	var wg sync.WaitGroup
	for i, post := range posts {
		wg.Add(1)
		go func(i int, post model.Post) {
			defer wg.Done()
			ref, err := o.cfg.Uploader.Upload(uploadCtx, post)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			refs[i] = ref
		}(i, post)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// primaryText extracts the fallback thread text from a post; templates
// without a primary text field yield "".
func primaryText(post model.Post) string {
	switch c := post.Content.(type) {
	case *model.TextImageContent:
		return strings.TrimSpace(c.Text)
	case *model.ArticleContent:
		return strings.TrimSpace(c.Text)
	case *model.FreeformContent:
		return strings.TrimSpace(c.Text)
	default:
		return ""
	}
}

var threadLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	threadLogger = l
}
