// Package routes defines HTTP route constants for the application.
package routes

const (
	RobotsPath = "/robots.txt"
	RootPath   = "/"

	// SSE
	SSEPath = "/sse"

	// Compose API
	APIDrafts       = "/api/drafts"
	APIDraft        = "/api/drafts/{id}"
	APIDraftTitle   = "/api/drafts/{id}/title"
	APIDraftPosts   = "/api/drafts/{id}/posts"
	APIDraftPost    = "/api/drafts/{id}/posts/{postId}"
	APIDraftMedia   = "/api/drafts/{id}/posts/{postId}/media"
	APIDraftPublish = "/api/drafts/{id}/publish"

	// Browse
	APIThreads       = "/api/threads"
	APIThread        = "/api/threads/{id}"
	APIProfile       = "/api/profiles/{address}"
	APIRenderArticle = "/api/render/article"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	WebhookUser   = "/webhook/user"
)
