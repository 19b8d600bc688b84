package auth

import "strings"

// Credentials live only for the duration of a login call and are never
// persisted or logged.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) normalized() Credentials {
	return Credentials{Email: strings.TrimSpace(c.Email), Password: c.Password}
}

type RegisterData struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r RegisterData) credentials() Credentials {
	return Credentials{Email: strings.TrimSpace(r.Email), Password: r.Password}
}
