package classifier

import "strings"

// ExtractSessionCookie returns the name=value segment of the session cookie
// from Set-Cookie header values, without attributes. When no value carries
// the marker the raw header is returned, and an empty string when there are
// no values at all.
func ExtractSessionCookie(setCookies []string, marker string) string {
	if len(setCookies) == 0 {
		return ""
	}
	if marker != "" {
		prefix := marker + "="
		for _, raw := range setCookies {
			idx := strings.Index(raw, prefix)
			if idx < 0 {
				continue
			}
			segment := raw[idx:]
			if end := strings.IndexByte(segment, ';'); end >= 0 {
				segment = segment[:end]
			}
			if end := strings.Index(segment, ", "); end >= 0 {
				segment = segment[:end]
			}
			return strings.TrimSpace(segment)
		}
	}
	return strings.Join(setCookies, ", ")
}
