package user

import "strings"

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// RegisterDTO is the payload for account self-registration.
type RegisterDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (d RegisterDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return ValidationError{Msg: "email is not valid"}
	}
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	if len(d.Password) < 8 {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}

// UpdateDTO carries the mutable profile fields. Nil means leave unchanged.
type UpdateDTO struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (d UpdateDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return ValidationError{Msg: "name cannot be empty"}
	}
	return nil
}
