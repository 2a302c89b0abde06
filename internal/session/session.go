// Package session holds authentication state and its lifecycle transitions.
package session

import (
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// Event types handled by the session slice.
const (
	LoginRequestType    intent.Type = "auth/loginRequest"
	LoginSuccessType    intent.Type = "auth/loginSuccess"
	LoginFailureType    intent.Type = "auth/loginFailure"
	RegisterRequestType intent.Type = "auth/registerRequest"
	RegisterSuccessType intent.Type = "auth/registerSuccess"
	RegisterFailureType intent.Type = "auth/registerFailure"
	LogoutRequestType   intent.Type = "auth/logoutRequest"
	LogoutSuccessType   intent.Type = "auth/logoutSuccess"
	LogoutFailureType   intent.Type = "auth/logoutFailure"
	ClientLogoutType    intent.Type = "auth/clientLogout"
)

// State is the authentication slice. Empty Token and Error mean null.
type State struct {
	User    *models.User
	Token   string
	Loading bool
	Error   string
}

// Initial returns the state of a fresh store.
func Initial() State {
	return State{}
}

// Hydrated returns the initial state for a persisted token.
func Hydrated(token string) State {
	return State{Token: token}
}

// IsAuthenticated reports whether a credential token is held.
func (s State) IsAuthenticated() bool {
	return s.Token != ""
}

// LoginRequest starts a login with creds.
func LoginRequest(creds models.LoginCredentials) intent.Event {
	return intent.New(LoginRequestType, creds)
}

// LoginSuccess ends a login with the user profile and credential token.
func LoginSuccess(user *models.User, token string) intent.Event {
	return intent.New(LoginSuccessType, models.AuthResult{User: user, Token: token})
}

// LoginFailure ends a login with an error message.
func LoginFailure(msg string) intent.Event {
	return intent.New(LoginFailureType, msg)
}

// RegisterRequest starts creating an account from data.
func RegisterRequest(data models.RegisterData) intent.Event {
	return intent.New(RegisterRequestType, data)
}

// RegisterSuccess ends a registration. An empty token means the user still
// has to log in.
func RegisterSuccess(user *models.User, token string) intent.Event {
	return intent.New(RegisterSuccessType, models.AuthResult{User: user, Token: token})
}

// RegisterFailure ends a registration with an error message.
func RegisterFailure(msg string) intent.Event {
	return intent.New(RegisterFailureType, msg)
}

// LogoutRequest starts a server-side logout.
func LogoutRequest() intent.Event {
	return intent.New(LogoutRequestType, nil)
}

// LogoutSuccess ends a logout the server accepted.
func LogoutSuccess() intent.Event {
	return intent.New(LogoutSuccessType, nil)
}

// LogoutFailure ends a logout the server rejected. Credentials are cleared anyway.
func LogoutFailure(msg string) intent.Event {
	return intent.New(LogoutFailureType, msg)
}

// ClientLogout drops credentials locally without contacting the server.
func ClientLogout() intent.Event {
	return intent.New(ClientLogoutType, nil)
}

// Reduce applies ev to s. Events for other slices return s unchanged.
func Reduce(s State, ev intent.Event) State {
	switch ev.Type {
	case LoginRequestType, RegisterRequestType:
		s.Loading = true
		s.Error = ""

	case LoginSuccessType:
		res, _ := ev.Payload.(models.AuthResult)
		if res.Token == "" {
			s.Loading = false
			s.Error = models.MissingTokenMessage
			return s
		}
		s = authenticated(s, res)

	case RegisterSuccessType:
		res, _ := ev.Payload.(models.AuthResult)
		if res.Token == "" {
			s.Loading = false
			s.Error = ""
			return s
		}
		s = authenticated(s, res)

	case LoginFailureType, RegisterFailureType:
		s.Loading = false
		s.Error, _ = ev.Payload.(string)

	case LogoutRequestType:
		s.Loading = true

	case LogoutSuccessType, ClientLogoutType:
		s = cleared(s)
		s.Error = ""

	case LogoutFailureType:
		s = cleared(s)
		s.Error, _ = ev.Payload.(string)
	}

	return s
}

func authenticated(s State, res models.AuthResult) State {
	s.User = res.User
	s.Token = res.Token
	s.Loading = false
	s.Error = ""
	return s
}

func cleared(s State) State {
	s.User = nil
	s.Token = ""
	s.Loading = false
	return s
}
