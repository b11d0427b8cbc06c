package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/model"
)

// ClerkProvider authenticates users through a hosted Clerk session, for
// deployments that front wallet login with a managed session service.
type ClerkProvider struct {
	db db.DB

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkProvider(clerkKey string, database db.DB) *ClerkProvider {
	clerk.SetKey(clerkKey)

	return &ClerkProvider{
		db: database,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(config.CookieSession)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkProvider) Middleware() func(http.Handler) http.Handler {
	withSession := clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
	return func(next http.Handler) http.Handler {
		return withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok {
				r = r.WithContext(ContextWithUser(r.Context(), model.UserID(claims.Subject)))
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (c *ClerkProvider) UserFromSession(r *http.Request) (model.UserID, error) {
	if userID, ok := UserFromContext(r.Context()); ok {
		return userID, nil
	}

	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", errors.New("failed to get session claims from context")
	}

	usr, err := clerkuser.Get(r.Context(), claims.Subject)
	if err != nil {
		return "", err
	}

	return model.UserID(usr.ID), nil
}

// HandleWebhookUser keeps the local users table in sync with Clerk account
// lifecycle events.
func (c *ClerkProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	type eventPayload struct {
		Data struct {
			clerk.User
		} `json:"data"`

		Type string `json:"type"`
	}

	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		identityLogger.Error().Err(err).Msg("Error decoding user webhook payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := payload.Data.User

	switch payload.Type {
	case "user.created":
		username := usr.ID
		if usr.Username != nil && *usr.Username != "" {
			username = *usr.Username
		} else if len(usr.ExternalAccounts) > 0 && usr.ExternalAccounts[0].Username != nil && *usr.ExternalAccounts[0].Username != "" {
			username = *usr.ExternalAccounts[0].Username
		}

		if _, err := c.db.Exec("INSERT INTO users (id, username) VALUES (?, ?)", usr.ID, username); err != nil {
			identityLogger.Error().Err(err).Str("user_id", usr.ID).Msg("Error inserting user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		identityLogger.Info().Str("user_id", usr.ID).Msg("User created")
		w.WriteHeader(http.StatusCreated)

	case "user.updated":
		w.WriteHeader(http.StatusNoContent)

	case "user.deleted":
		if _, err := c.db.Exec("DELETE FROM users WHERE id = ?", usr.ID); err != nil {
			identityLogger.Error().Err(err).Str("user_id", usr.ID).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		identityLogger.Info().Str("user_id", usr.ID).Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
