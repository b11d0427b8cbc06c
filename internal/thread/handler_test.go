package thread

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/routes"
	"github.com/jongan69/threadiverse/internal/store"
)

// fakeProvider serves a mutable identity; empty means signed out.
type fakeProvider struct {
	user model.UserID
}

func (f *fakeProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func (f *fakeProvider) UserFromSession(r *http.Request) (model.UserID, error) {
	if f.user == "" {
		return "", errors.New("no session")
	}
	return f.user, nil
}

type testAPI struct {
	mux       *http.ServeMux
	provider  *fakeProvider
	drafts    store.DraftStore
	uploader  *fakeUploader
	publisher *fakePublisher
}

func newTestAPI(t *testing.T, user model.UserID) *testAPI {
	t.Helper()

	provider := &fakeProvider{user: user}
	drafts := store.NewMemoryDraftStore()
	uploader := &fakeUploader{}
	publisher := &fakePublisher{}

	factory := func() *Orchestrator {
		return New(Config{
			Store:            drafts,
			Identity:         fakeIdentity{user: user},
			Uploader:         uploader,
			Publisher:        publisher,
			AutosaveDebounce: time.Hour,
		})
	}

	h := NewHandler(factory, drafts, provider)

	mux := http.NewServeMux()
	mux.HandleFunc(routes.APIDrafts, h.ServeDrafts)
	mux.HandleFunc(routes.APIDraft, h.ServeDraft)
	mux.HandleFunc(routes.APIDraftTitle, h.ServeDraftTitle)
	mux.HandleFunc(routes.APIDraftPosts, h.ServeDraftPosts)
	mux.HandleFunc(routes.APIDraftPost, h.ServeDraftPost)
	mux.HandleFunc(routes.APIDraftMedia, h.ServeDraftMedia)
	mux.HandleFunc(routes.APIDraftPublish, h.ServeDraftPublish)

	return &testAPI{mux: mux, provider: provider, drafts: drafts, uploader: uploader, publisher: publisher}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, r)
	return w
}

func (a *testAPI) createDraft(t *testing.T) model.Draft {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/drafts", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var draft model.Draft
	if err := json.Unmarshal(w.Body.Bytes(), &draft); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return draft
}

func (a *testAPI) addPost(t *testing.T, draftID model.DraftID, templateID model.TemplateID) model.Post {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/drafts/"+string(draftID)+"/posts",
		`{"templateId":"`+string(templateID)+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var post model.Post
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return post
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")

	draft := api.createDraft(t)
	if draft.ID == "" {
		t.Fatal("Expected the new draft to carry an id")
	}

	// Rename, add a post, replace its content.
	if w := api.do(t, http.MethodPut, "/api/drafts/"+string(draft.ID)+"/title", `{"title":"Hot takes"}`); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	post := api.addPost(t, draft.ID, model.TemplateTextImage)
	if post.TemplateID != model.TemplateTextImage {
		t.Errorf("Expected a text-image post, got %s", post.TemplateID)
	}

	w := api.do(t, http.MethodPut, "/api/drafts/"+string(draft.ID)+"/posts/"+string(post.ID),
		`{"text":"take one","media":[]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated model.Draft
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.Title != "Hot takes" || len(updated.Posts) != 1 {
		t.Errorf("Expected the edited draft back, got %+v", updated)
	}
	if text := updated.Posts[0].Content.(*model.TextImageContent).Text; text != "take one" {
		t.Errorf("Expected post text replaced, got %q", text)
	}

	// Remove the post again.
	if w := api.do(t, http.MethodDelete, "/api/drafts/"+string(draft.ID)+"/posts/"+string(post.ID), ""); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w := api.do(t, http.MethodDelete, "/api/drafts/"+string(draft.ID)+"/posts/"+string(post.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a removed post, got %d", w.Code)
	}
}

func TestDraftEndpointsRequireSession(t *testing.T) {
	api := newTestAPI(t, "")

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/api/drafts"},
		{http.MethodGet, "/api/drafts"},
		{http.MethodGet, "/api/drafts/some-id"},
		{http.MethodPost, "/api/drafts/some-id/publish"},
	} {
		if w := api.do(t, req.method, req.path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for %s %s, got %d", req.method, req.path, w.Code)
		}
	}
}

func TestGetUnknownDraftOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")

	if w := api.do(t, http.MethodGet, "/api/drafts/"+string(model.NewDraftID()), ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestAddMediaOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")
	draft := api.createDraft(t)
	post := api.addPost(t, draft.ID, model.TemplateTextImage)
	mediaPath := "/api/drafts/" + string(draft.ID) + "/posts/" + string(post.ID) + "/media"

	w := api.do(t, http.MethodPost, mediaPath, `{"url":"https://example.com/cat.gif"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated model.Post
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	media := updated.Content.(*model.TextImageContent).Media
	if len(media) != 1 || media[0].Type != model.MediaImage {
		t.Errorf("Expected one image attachment, got %+v", media)
	}

	w = api.do(t, http.MethodPost, mediaPath, `{"url":"https://example.com/cat.exe"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "valid image or video URL") {
		t.Errorf("Expected the inline validation message, got %s", w.Body.String())
	}
}

func TestInvalidContentRejectedOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")
	draft := api.createDraft(t)
	post := api.addPost(t, draft.ID, model.TemplatePoll)

	// A poll with a single option violates the template's bounds.
	w := api.do(t, http.MethodPut, "/api/drafts/"+string(draft.ID)+"/posts/"+string(post.ID),
		`{"question":"q","options":["only one"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublishOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")
	draft := api.createDraft(t)
	publishPath := "/api/drafts/" + string(draft.ID) + "/publish"

	// Empty thread fails precondition.
	if w := api.do(t, http.MethodPost, publishPath, ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for an empty thread, got %d", w.Code)
	}

	api.addPost(t, draft.ID, model.TemplateTextImage)

	w := api.do(t, http.MethodPost, publishPath, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result["threadId"] != "thread-1" {
		t.Errorf("Expected threadId thread-1, got %v", result)
	}
	if api.publisher.calls() != 1 {
		t.Errorf("Expected 1 publish call, got %d", api.publisher.calls())
	}
}

func TestPublishFailureOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")
	api.publisher.err = errors.New("gateway down")

	draft := api.createDraft(t)
	api.addPost(t, draft.ID, model.TemplateTextImage)

	w := api.do(t, http.MethodPost, "/api/drafts/"+string(draft.ID)+"/publish", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "please try again") {
		t.Errorf("Expected the generic retry message, got %s", w.Body.String())
	}
}

func TestDraftSessionsAreOwnerScoped(t *testing.T) {
	api := newTestAPI(t, "0xalice")

	draft := api.createDraft(t)
	draftPath := "/api/drafts/" + string(draft.ID)
	if w := api.do(t, http.MethodPut, draftPath+"/title", `{"title":"alice's thread"}`); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// Another identity cannot see or touch the live session.
	api.provider.user = "0xmallory"

	if w := api.do(t, http.MethodGet, draftPath, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 reading another user's draft, got %d", w.Code)
	}
	if w := api.do(t, http.MethodPut, draftPath+"/title", `{"title":"hijacked"}`); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 retitling another user's draft, got %d", w.Code)
	}
	if w := api.do(t, http.MethodPost, draftPath+"/posts", `{"templateId":"text-image"}`); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 adding a post to another user's draft, got %d", w.Code)
	}
	if w := api.do(t, http.MethodPost, draftPath+"/publish", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 publishing another user's draft, got %d", w.Code)
	}
	if w := api.do(t, http.MethodDelete, draftPath, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting another user's draft, got %d", w.Code)
	}

	// The owner's session is intact afterwards.
	api.provider.user = "0xalice"

	w := api.do(t, http.MethodGet, draftPath, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the owner, got %d", w.Code)
	}
	var got model.Draft
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Title != "alice's thread" || len(got.Posts) != 0 {
		t.Errorf("Expected the draft untouched, got %+v", got)
	}
}

func TestDeleteDraftOverHTTP(t *testing.T) {
	api := newTestAPI(t, "0xabc")
	draft := api.createDraft(t)

	if w := api.do(t, http.MethodDelete, "/api/drafts/"+string(draft.ID), ""); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/api/drafts/"+string(draft.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}
