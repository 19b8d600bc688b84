package classifier

import (
	"github.com/jrsteele09/energia-client/users"
)

// ParsedUserData is what a page says about its viewer.
type ParsedUserData struct {
	Authenticated bool
	User          *users.User
	// NamePattern names the pattern that produced User.Name, empty when the
	// name is the default.
	NamePattern string
	LoginForm   bool
}

// ParseHTML inspects a server rendered page. It is pure and never panics.
//
// A page with a login form and no logged-in evidence is unauthenticated.
// Identity evidence (metadata id or an extracted name) outranks the form,
// since transitional pages can render both. A page without a form that has a
// logout link or dashboard container but no extractable name is still
// authenticated, under the default display name.
func ParseHTML(page []byte) ParsedUserData {
	m := scanMarkers(page)
	text := string(page)

	name, pattern := extractName(text)
	positive := m.metadataID != "" || name != ""
	loggedInMarker := positive || m.hasLogout || m.hasDashboard

	result := ParsedUserData{LoginForm: m.loginForm()}
	if m.loginForm() && !loggedInMarker {
		return result
	}
	if !positive && (m.loginForm() || !(m.hasLogout || m.hasDashboard)) {
		return result
	}

	u := &users.User{
		ID:    users.DefaultUserID,
		Name:  users.DefaultName,
		Email: extractEmail(text),
		Group: m.metadataGroup,
	}
	if m.metadataID != "" {
		u.ID = m.metadataID
	}
	if name != "" {
		u.Name = name
		result.NamePattern = pattern
	}
	if u.Group == "" {
		u.Group = fallbackGroup(text)
	}

	result.Authenticated = true
	result.User = u
	return result
}
