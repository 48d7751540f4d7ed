package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRole = errors.New("model: invalid role")

type Role string

const (
	RoleSolo    Role = "solo"
	RoleTeam    Role = "team"
	RoleCompany Role = "company"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSolo, RoleTeam, RoleCompany:
		return true
	default:
		return false
	}
}

type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	DarkMode bool   `json:"darkMode,omitempty"`
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("model: profile id is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("model: profile email is required")
	}
	if p.Role != "" && !p.Role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}
	return nil
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("model: name is required")
	}
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return errors.New("model: a valid email is required")
	}
	if len(r.Password) < 6 {
		return errors.New("model: password must be at least 6 characters")
	}
	if r.Role != "" && !r.Role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, r.Role)
	}
	return nil
}

// AuthGrant is what a successful login, OTP verification or refresh yields.
type AuthGrant struct {
	AccessToken string  `json:"accessToken"`
	User        Profile `json:"user"`
}
