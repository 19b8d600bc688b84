package users

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Group is the backend assigned cohort. It changes the greeting, the theme
// and which dashboard panels are shown.
type Group string

const (
	GroupWatts Group = "Watts" // primary cohort
	GroupVolts Group = "Volts" // generic dashboard cohort
)

const (
	// DefaultUserID is used when the dashboard does not expose a real id.
	DefaultUserID = "dashboard-extracted"
	DefaultName   = "Usuário"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Group Group  `json:"group,omitempty"`
}

// ParseGroup matches Watts and Volts case-insensitively.
func ParseGroup(s string) (Group, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(GroupWatts)):
		return GroupWatts, true
	case strings.EqualFold(strings.TrimSpace(s), string(GroupVolts)):
		return GroupVolts, true
	}
	return "", false
}

// GroupOrDefault returns the user's group, Watts when unset.
func (u *User) GroupOrDefault() Group {
	if u == nil || u.Group == "" {
		return GroupWatts
	}
	return u.Group
}

// HasRealID reports whether the id came from the backend rather than the sentinel.
func (u *User) HasRealID() bool {
	return u != nil && u.ID != "" && u.ID != DefaultUserID
}

// Greeting is the cohort specific salutation shown after login.
func (u *User) Greeting() string {
	name := DefaultName
	if u != nil && u.Name != "" {
		name = u.Name
	}
	if u.GroupOrDefault() == GroupVolts {
		return "Olá, " + name + "!"
	}
	return "Bem-vindo de volta, " + name + "!"
}

// Account is a user with the stored password hash. Only the sandbox backend
// keeps these.
type Account struct {
	User
	PasswordHash string `json:"-"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (a *Account) CheckPassword(password string) bool {
	return CheckPasswordHash(password, a.PasswordHash)
}
