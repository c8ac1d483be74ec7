package common

// AccessTokenHeaderName carries the bearer token on outbound requests.
const AccessTokenHeaderName = "Authorization"

// UserIDCookieName is the cookie the host application sets for anonymous
// identity.
const UserIDCookieName = "userId"

const (
	// StyleIDPrefix prefixes the id of every injected user theme style.
	StyleIDPrefix = "user-theme-"

	// OfficialStyleID identifies the host's own stylesheet. It is never removed.
	OfficialStyleID = "official-theme"

	// ManagedByAttr and ManagedByValue tag styles owned by the theme system.
	ManagedByAttr  = "data-managed-by"
	ManagedByValue = "user-theme"

	// ThemeBodyClass scopes author rules; it is toggled on the page body.
	ThemeBodyClass = "user-theme"
)

// ContentPathPrefix is the route under which version bytes are served.
const ContentPathPrefix = "/api/user-theme/"

// Allowed submission sources.
const (
	SourceUpload = "upload"
	SourceAI     = "ai"
)
