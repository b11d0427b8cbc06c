package thread

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jongan69/threadiverse/internal/cache"
	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/identity"
	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/schema"
	"github.com/jongan69/threadiverse/internal/store"
)

// Handler exposes the compose API. Each draft being edited gets one
// orchestrator, held in the session cache so concurrent requests for the same
// draft share state.
type Handler struct {
	factory  func() *Orchestrator
	sessions *cache.Cache[model.DraftID, *Orchestrator]

	store    store.DraftStore
	provider identity.Provider
}

func NewHandler(factory func() *Orchestrator, draftStore store.DraftStore, provider identity.Provider) *Handler {
	return &Handler{
		factory:  factory,
		sessions: cache.NewCache[model.DraftID, *Orchestrator](),
		store:    draftStore,
		provider: provider,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (model.UserID, bool) {
	userID, err := h.provider.UserFromSession(r)
	if err != nil {
		http.Error(w, "Sign in to manage drafts", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// session returns the orchestrator for the draft in the URL, resuming it from
// the store on first touch. A live session belonging to another identity is
// indistinguishable from a missing draft.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, owner model.UserID) (*Orchestrator, bool) {
	draftID := model.DraftID(r.PathValue("id"))
	if draftID == "" {
		http.NotFound(w, r)
		return nil, false
	}

	if orch, ok := h.sessions.Get(draftID); ok {
		if orch.Owner() != owner {
			http.NotFound(w, r)
			return nil, false
		}
		return orch, true
	}

	orch := h.factory()
	if err := orch.Start(r.Context(), owner, draftID); err != nil {
		if errors.Is(err, store.ErrDraftNotFound) {
			http.NotFound(w, r)
		} else {
			http.Error(w, "Error loading draft", http.StatusInternalServerError)
		}
		return nil, false
	}

	orch, _ = h.sessions.GetOrSet(draftID, orch)
	if orch.Owner() != owner {
		http.NotFound(w, r)
		return nil, false
	}
	return orch, true
}

// ServeDrafts handles the drafts collection: POST creates a fresh draft, GET
// lists the signed-in user's drafts.
func (h *Handler) ServeDrafts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		orch := h.factory()
		if err := orch.Start(r.Context(), userID, ""); err != nil {
			http.Error(w, "Error creating draft", http.StatusInternalServerError)
			return
		}
		draft := orch.Draft()
		h.sessions.Set(draft.ID, orch)
		writeJSON(w, http.StatusCreated, draft)

	case http.MethodGet:
		drafts, err := h.store.ListDraftsFor(r.Context(), userID)
		if err != nil {
			http.Error(w, "Error listing drafts", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, drafts)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

// ServeDraft handles one draft: GET returns it, DELETE removes it.
func (h *Handler) ServeDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		orch, ok := h.session(w, r, userID)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, orch.Draft())

	case http.MethodDelete:
		draftID := model.DraftID(r.PathValue("id"))
		if orch, ok := h.sessions.Get(draftID); ok && orch.Owner() != userID {
			http.NotFound(w, r)
			return
		}
		if err := h.store.Delete(r.Context(), userID, draftID); err != nil {
			http.Error(w, "Error deleting draft", http.StatusInternalServerError)
			return
		}
		h.sessions.Delete(draftID)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func (h *Handler) ServeDraftTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orch, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	orch.SetTitle(body.Title)
	writeJSON(w, http.StatusOK, orch.Draft())
}

// ServeDraftPosts appends a new post from a template selection.
func (h *Handler) ServeDraftPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orch, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	var body struct {
		TemplateID model.TemplateID `json:"templateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	post := orch.AddPost(body.TemplateID)
	writeJSON(w, http.StatusCreated, post)
}

// ServeDraftPost replaces a post's content wholesale (PUT) or removes the
// post (DELETE).
func (h *Handler) ServeDraftPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orch, ok := h.session(w, r, userID)
	if !ok {
		return
	}
	postID := model.PostID(r.PathValue("postId"))

	switch r.Method {
	case http.MethodPut:
		var post *model.Post
		for _, p := range orch.Draft().Posts {
			if p.ID == postID {
				post = &p
				break
			}
		}
		if post == nil {
			http.NotFound(w, r)
			return
		}

		content := model.EmptyContent(post.TemplateID)
		if err := json.NewDecoder(r.Body).Decode(content); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if err := schema.Validate(content); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		orch.UpdatePost(postID, content)
		writeJSON(w, http.StatusOK, orch.Draft())

	case http.MethodDelete:
		if !orch.RemovePost(postID) {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

// ServeDraftMedia adds a media item to a text-image post through the
// composer, surfacing the URL validation error inline.
func (h *Handler) ServeDraftMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orch, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	comp, err := orch.Composer(model.PostID(r.PathValue("postId")))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := comp.AddMedia(body.URL); err != nil {
		http.Error(w, "Please enter a valid image or video URL", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, comp.Post())
}

// ServeDraftPublish runs the publish sequence and returns the new thread id.
func (h *Handler) ServeDraftPublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	orch, ok := h.session(w, r, userID)
	if !ok {
		return
	}

	threadID, err := orch.Publish(r.Context())
	switch {
	case errors.Is(err, ErrNotSignedIn):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrEmptyThread):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrPublishInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, ErrPublishFailed.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"threadId": string(threadID),
		})
	}
}
