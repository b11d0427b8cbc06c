package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jongan69/threadiverse/internal/db"
)

func newWebhookProvider(t *testing.T) (*ClerkProvider, db.DB) {
	t.Helper()

	database := db.NewSQLite(":memory:")
	if err := database.Init(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewClerkProvider("sk_test_dummy", database), database
}

func postWebhook(t *testing.T, provider *ClerkProvider, payload string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/webhook/user", strings.NewReader(payload))
	w := httptest.NewRecorder()
	provider.HandleWebhookUser(w, r)
	return w
}

func storedUsername(t *testing.T, database db.DB, id string) string {
	t.Helper()

	var username string
	if err := database.QueryRow("SELECT username FROM users WHERE id = ?", id).Scan(&username); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return username
}

func TestHandleWebhookUserCreated(t *testing.T) {
	testCases := []struct {
		name         string
		id           string
		payload      string
		wantUsername string
	}{
		{
			name:         "Username set",
			id:           "user_1",
			payload:      `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`,
			wantUsername: "alice",
		},
		{
			name:         "Falls back to external account",
			id:           "user_2",
			payload:      `{"type":"user.created","data":{"id":"user_2","username":null,"external_accounts":[{"username":"bob"}]}}`,
			wantUsername: "bob",
		},
		{
			name:         "External account without a username",
			id:           "user_3",
			payload:      `{"type":"user.created","data":{"id":"user_3","username":null,"external_accounts":[{"username":null}]}}`,
			wantUsername: "user_3",
		},
		{
			name:         "No usernames anywhere",
			id:           "user_4",
			payload:      `{"type":"user.created","data":{"id":"user_4"}}`,
			wantUsername: "user_4",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider, database := newWebhookProvider(t)

			w := postWebhook(t, provider, tc.payload)
			if w.Code != http.StatusCreated {
				t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
			}

			if got := storedUsername(t, database, tc.id); got != tc.wantUsername {
				t.Errorf("Expected username %q, got %q", tc.wantUsername, got)
			}
		})
	}
}

func TestHandleWebhookUserDeleted(t *testing.T) {
	provider, database := newWebhookProvider(t)

	if w := postWebhook(t, provider, `{"type":"user.created","data":{"id":"user_1","username":"alice"}}`); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	if w := postWebhook(t, provider, `{"type":"user.deleted","data":{"id":"user_1"}}`); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", "user_1").Scan(&count); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 0 {
		t.Error("Expected the user row removed")
	}
}

func TestHandleWebhookRejectsBadPayloads(t *testing.T) {
	provider, _ := newWebhookProvider(t)

	if w := postWebhook(t, provider, `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed json, got %d", w.Code)
	}
	if w := postWebhook(t, provider, `{"type":"user.mystery","data":{"id":"user_1"}}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown event type, got %d", w.Code)
	}
}
