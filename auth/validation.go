package auth

import (
	"strings"

	"github.com/jrsteele09/energia-client/internal/errors"
)

const minPasswordLength = 6

// Validator holds the local, pre-network checks. A failing check never lets
// a request reach the transport.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEmail requires a non-empty address containing "@".
func (v *Validator) ValidateEmail(email string) []string {
	email = strings.TrimSpace(email)
	if email == "" {
		return []string{"Email is required"}
	}
	if !strings.Contains(email, "@") {
		return []string{"Email must be a valid address"}
	}
	return nil
}

// ValidatePassword checks a new password. Existing passwords are only
// required to be non-empty.
func (v *Validator) ValidatePassword(password string) []string {
	if password == "" {
		return []string{"Password is required"}
	}
	if len([]rune(password)) < minPasswordLength {
		return []string{"Password must be at least 6 characters"}
	}
	return nil
}

func (v *Validator) ValidateCredentials(c Credentials) error {
	problems := v.ValidateEmail(c.Email)
	if c.Password == "" {
		problems = append(problems, "Password is required")
	}
	return validationError("[Validator.ValidateCredentials]", problems)
}

func (v *Validator) ValidateRegistration(r RegisterData) error {
	var problems []string
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "Name is required")
	}
	problems = append(problems, v.ValidateEmail(r.Email)...)
	problems = append(problems, v.ValidatePassword(r.Password)...)
	if r.Password != r.ConfirmPassword {
		problems = append(problems, "Passwords do not match")
	}
	return validationError("[Validator.ValidateRegistration]", problems)
}

func (v *Validator) ValidatePasswordChange(current, next string) error {
	var problems []string
	if current == "" {
		problems = append(problems, "Current password is required")
	}
	problems = append(problems, v.ValidatePassword(next)...)
	if current != "" && current == next {
		problems = append(problems, "New password must differ from the current one")
	}
	return validationError("[Validator.ValidatePasswordChange]", problems)
}

// ValidatePassword is the package level form of Validator.ValidatePassword.
func ValidatePassword(password string) []string {
	return NewValidator().ValidatePassword(password)
}

func validationError(op string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrValidation, op, strings.Join(problems, ". "))
}
