package models

import (
	"regexp"
	"strings"
	"time"
)

// User is the authenticated account as returned by the backend.
type User struct {
	ID          string    `json:"_id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DisplayName returns the user's full name, falling back to the email.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// LoginCredentials for login.
type LoginCredentials struct {
	EmailOrPhoneNumber string `json:"emailOrPhoneNumber"`
	Password           string `json:"password"`
	RememberMe         bool   `json:"rememberMe,omitempty"`
}

// RegisterData for account creation.
type RegisterData struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// TokenInfo describes a persisted credential token.
type TokenInfo struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired checks if the token has expired. Tokens without an expiry never do.
func (t *TokenInfo) IsExpired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// MinPasswordLength is the shortest password the login form accepts.
const MinPasswordLength = 6

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// Validate checks login form fields.
func (c *LoginCredentials) Validate() error {
	id := strings.TrimSpace(c.EmailOrPhoneNumber)
	switch {
	case id == "":
		return &ValidationError{Field: "emailOrPhoneNumber", Message: "Email or phone number is required"}
	case !emailPattern.MatchString(id) && !phonePattern.MatchString(id):
		return &ValidationError{Field: "emailOrPhoneNumber", Message: "Please enter a valid email address or phone number"}
	case c.Password == "":
		return &ValidationError{Field: "password", Message: "Password is required"}
	case len(c.Password) < MinPasswordLength:
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// Validate checks registration form fields.
func (r *RegisterData) Validate() error {
	switch {
	case strings.TrimSpace(r.FirstName) == "":
		return &ValidationError{Field: "firstName", Message: "First name is required"}
	case strings.TrimSpace(r.LastName) == "":
		return &ValidationError{Field: "lastName", Message: "Last name is required"}
	case strings.TrimSpace(r.Email) == "":
		return &ValidationError{Field: "email", Message: "Email is required"}
	case !emailPattern.MatchString(r.Email):
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	case strings.TrimSpace(r.PhoneNumber) == "":
		return &ValidationError{Field: "phoneNumber", Message: "Phone number is required"}
	case !phonePattern.MatchString(r.PhoneNumber):
		return &ValidationError{Field: "phoneNumber", Message: "Please enter a valid international phone number (e.g., +1234567890)"}
	case r.Password == "":
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}
