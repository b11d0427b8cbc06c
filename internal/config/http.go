package config

const (
	HCType        = "Content-Type"
	HCacheControl = "Cache-Control"

	CTypeJSON = "application/json"
	CTypeHTML = "text/html"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieWalletToken = "wallet-token"
	CookieSession     = "__session"
)

const (
	// MarkdownHighlightTheme is the chroma style used when rendering article
	// post bodies.
	MarkdownHighlightTheme = "gruvbox"
)
