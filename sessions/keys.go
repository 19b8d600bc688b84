package sessions

// Storage keys. Each is independently readable and removable; Clear removes
// all of them.
const (
	KeyAccessToken    = "auth.access_token"
	KeyRefreshToken   = "auth.refresh_token"
	KeyUserData       = "auth.user_data"
	KeyTokenExpiresAt = "auth.token_expires_at" // unix milliseconds
	KeyCookie         = "auth.cookie"
)

var allKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyUserData,
	KeyTokenExpiresAt,
	KeyCookie,
}

// AllKeys returns every key the session manager writes.
func AllKeys() []string {
	out := make([]string, len(allKeys))
	copy(out, allKeys)
	return out
}
