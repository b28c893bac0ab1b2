package common

const (
	// SessionCookieName is the cookie carrying the session token for browser clients.
	SessionCookieName = "megavault_session"

	// AuthorizationHeaderName carries "Bearer <token>" for API clients.
	AuthorizationHeaderName = "Authorization"

	// PublicMetadataKey is the object-level user metadata key holding the visibility flag.
	PublicMetadataKey = "is-public"
)
