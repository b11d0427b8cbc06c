package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/db"
	"github.com/jongan69/threadiverse/internal/identity"
	"github.com/jongan69/threadiverse/internal/logger"
	"github.com/jongan69/threadiverse/internal/model"
	"github.com/jongan69/threadiverse/internal/publish"
	"github.com/jongan69/threadiverse/internal/render"
	"github.com/jongan69/threadiverse/internal/repository"
	"github.com/jongan69/threadiverse/internal/routes"
	"github.com/jongan69/threadiverse/internal/sse"
	"github.com/jongan69/threadiverse/internal/store"
	"github.com/jongan69/threadiverse/internal/thread"
)

var (
	database   db.DB
	draftStore store.DraftStore
	threadRepo repository.ThreadRepository
	provider   identity.Provider
	clients    = sse.NewClients()

	log zerolog.Logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	log = logger.New(cfg.Logging.Level)
	config.SetLogger(log)
	db.SetLogger(log)
	store.SetLogger(log)
	repository.SetLogger(log)
	identity.SetLogger(log)
	publish.SetLogger(log)
	thread.SetLogger(log)
	render.SetLogger(log)

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = ":memory:"
	}
	database = db.NewSQLite(dbPath)
	if err := database.Init(); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	draftStore = newDraftStore(cfg.Store.Path, database)

	dbThreads := repository.NewDBThreadRepository(database)
	if err := dbThreads.Init(); err != nil {
		log.Fatal().Err(err).Msg("Error initializing thread index")
	}
	dbThreads.SetRecordNotifier(func(id model.ThreadID) {
		log.Info().Str("thread_id", string(id)).Msg("New thread available")
	})
	threadRepo = dbThreads

	switch cfg.Features.Authentication.Type {
	case "clerk":
		provider = identity.NewClerkProvider(os.Getenv("CLERK_API"), database)
	default:
		walletProvider, err := identity.NewWalletProvider()
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing wallet auth")
		}
		provider = walletProvider
	}

	uploader := publish.NewS3Uploader(
		os.Getenv("S3_ACCESS_KEY_ID"),
		os.Getenv("S3_ACCESS_KEY_SECRET"),
		cfg.Upload.Endpoint,
		cfg.Upload.Bucket,
	)
	publisher := publish.NewHTTPPublisher(cfg.Publish.Endpoint)

	orchestrators := func() *thread.Orchestrator {
		return thread.New(thread.Config{
			Store:            draftStore,
			Identity:         identity.ContextSource{},
			Uploader:         uploader,
			Publisher:        publisher,
			Threads:          threadRepo,
			AutosaveDebounce: time.Duration(cfg.Compose.AutosaveDebounceMs) * time.Millisecond,
			OnSaved: func(id model.DraftID) {
				clients.Broadcast(id, "saved")
			},
		})
	}

	composeHandler := thread.NewHandler(orchestrators, draftStore, provider)

	mux := http.NewServeMux()

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	mux.HandleFunc(routes.APIDrafts, composeHandler.ServeDrafts)
	mux.HandleFunc(routes.APIDraft, composeHandler.ServeDraft)
	mux.HandleFunc(routes.APIDraftTitle, composeHandler.ServeDraftTitle)
	mux.HandleFunc(routes.APIDraftPosts, composeHandler.ServeDraftPosts)
	mux.HandleFunc(routes.APIDraftPost, composeHandler.ServeDraftPost)
	mux.HandleFunc(routes.APIDraftMedia, composeHandler.ServeDraftMedia)
	mux.HandleFunc(routes.APIDraftPublish, composeHandler.ServeDraftPublish)

	mux.HandleFunc(routes.APIThreads, serveThreads)
	mux.HandleFunc(routes.APIThread, serveThread)
	mux.HandleFunc(routes.APIProfile, serveProfile)
	if cfg.Features.Render.Enabled {
		mux.HandleFunc(routes.APIRenderArticle, serveRenderArticle)
	}

	mux.HandleFunc(routes.SSEPath, eventsHandler)

	if cfg.Features.Authentication.Enabled {
		if walletProvider, ok := provider.(*identity.WalletProvider); ok {
			identity.RegisterWalletAuthRoutes(mux, walletProvider)
		}
		if clerkProvider, ok := provider.(*identity.ClerkProvider); ok {
			mux.HandleFunc(routes.WebhookUser, clerkProvider.HandleWebhookUser)
		}
	}

	handler := provider.Middleware()(secureHeaders(mux))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("Listening")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// newDraftStore selects the draft store: in-memory when no database path is
// configured, SQLite otherwise.
func newDraftStore(path string, database db.DB) store.DraftStore {
	if path == "" {
		return store.NewMemoryDraftStore()
	}
	return store.NewSQLiteDraftStore(database)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serveThreads lists recently published threads for the home view.
func serveThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := threadRepo.Recent(r.Context(), 50)
	if err != nil {
		log.Error().Err(err).Msg("Error listing threads")
		http.Error(w, "Error listing threads", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func serveThread(w http.ResponseWriter, r *http.Request) {
	id := model.ThreadID(r.PathValue("id"))
	t, err := threadRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Str("thread_id", string(id)).Msg("Error reading thread")
		http.Error(w, "Error reading thread", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// serveProfile returns a profile view: the address's published threads, plus
// its drafts when the requester is looking at their own profile.
func serveProfile(w http.ResponseWriter, r *http.Request) {
	address := model.UserID(r.PathValue("address"))

	threads, err := threadRepo.ByAuthor(r.Context(), address)
	if err != nil {
		log.Error().Err(err).Str("address", string(address)).Msg("Error listing profile threads")
		http.Error(w, "Error reading profile", http.StatusInternalServerError)
		return
	}

	profile := struct {
		Address model.UserID   `json:"address"`
		Threads []model.Thread `json:"threads"`
		Drafts  []model.Draft  `json:"drafts,omitempty"`
	}{
		Address: address,
		Threads: threads,
	}

	if userID, ok := identity.UserFromContext(r.Context()); ok && userID == address {
		drafts, err := draftStore.ListDraftsFor(r.Context(), address)
		if err != nil {
			log.Error().Err(err).Str("address", string(address)).Msg("Error listing profile drafts")
		} else {
			profile.Drafts = drafts
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

// serveRenderArticle renders a markdown article body to HTML for preview.
func serveRenderArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	htmlContent := render.RenderMarkdown([]byte(body.Text), config.MarkdownHighlightTheme)
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write(htmlContent)
}

// eventsHandler streams autosave notifications for the draft in the query
// string.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	draftID := model.DraftID(r.URL.Query().Get("draft"))
	if draftID == "" {
		http.Error(w, "draft required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sse.Client{Msg: make(chan string, 8), DraftID: draftID}
	clients.Add(client)
	defer clients.Delete(client)

	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
