package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/effects"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/session"
	"github.com/TheMichaelB/songdeck/internal/storage"
	"github.com/TheMichaelB/songdeck/internal/transport"
)

// Endpoints
const (
	loginPath    = "/user/login"
	registerPath = "/user"
	logoutPath   = "/auth/logout"
)

// Fallback messages when neither the server nor the status code says more.
const (
	loginFailed    = "Login failed"
	registerFailed = "Registration failed"
	logoutFailed   = "Logout failed"
)

// Service handles authentication effects and credential persistence.
type Service struct {
	transport transport.Transport
	storage   storage.Store
	logger    *events.Logger

	tokenKey  string
	autoLogin bool
}

// NewService creates an auth service.
func NewService(transport transport.Transport, store storage.Store, cfg *config.AuthConfig, logger *events.Logger) *Service {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	tokenKey := cfg.TokenKey
	if tokenKey == "" {
		tokenKey = config.DefaultTokenKey
	}

	return &Service{
		transport: transport,
		storage:   store,
		tokenKey:  tokenKey,
		autoLogin: cfg.AutoLoginOnRegister,
		logger:    logger.WithField("service", "auth"),
	}
}

// Bind registers the auth handlers on r.
func (s *Service) Bind(r *effects.Runner, policy effects.PolicyFunc) {
	r.Register(session.LoginRequestType, s.Login,
		effects.WithPolicy(policy(session.LoginRequestType)),
		effects.WithFailure(session.LoginFailure))
	r.Register(session.RegisterRequestType, s.Register,
		effects.WithPolicy(policy(session.RegisterRequestType)),
		effects.WithFailure(session.RegisterFailure))
	r.Register(session.LogoutRequestType, s.Logout,
		effects.WithPolicy(policy(session.LogoutRequestType)),
		effects.WithFailure(session.LogoutFailure))
	r.Register(session.ClientLogoutType, s.ClientLogout,
		effects.WithPolicy(policy(session.ClientLogoutType)))
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login handles session.LoginRequestType.
func (s *Service) Login(ctx context.Context, ev intent.Event) intent.Event {
	logger := events.FromContext(ctx)

	creds, ok := ev.Payload.(models.LoginCredentials)
	if !ok {
		return session.LoginFailure(loginFailed)
	}
	if err := creds.Validate(); err != nil {
		return session.LoginFailure(models.ErrorMessage(err, loginFailed))
	}

	logger.WithField("login", creds.EmailOrPhoneNumber).Info("Logging in")

	env, err := s.transport.Post(ctx, loginPath, creds)
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return session.LoginFailure(models.ErrorMessage(err, models.StatusMessage(err, loginFailed)))
	}

	// The login endpoint returns the token beside the data, not inside it.
	if env.Token == "" {
		logger.Warn("Login response carried no token")
		return session.LoginFailure(models.MissingTokenMessage)
	}

	var data authResponse
	if err := env.Decode(&data); err != nil && !errors.Is(err, models.ErrEmptyData) {
		return session.LoginFailure(models.ErrorMessage(err, loginFailed))
	}

	s.persist(ctx, env.Token)
	logger.Info("Login successful")
	return session.LoginSuccess(data.User, env.Token)
}

// Register handles session.RegisterRequestType. A token in the response
// logs the user in only when auto-login is enabled.
func (s *Service) Register(ctx context.Context, ev intent.Event) intent.Event {
	logger := events.FromContext(ctx)

	data, ok := ev.Payload.(models.RegisterData)
	if !ok {
		return session.RegisterFailure(registerFailed)
	}
	if err := data.Validate(); err != nil {
		return session.RegisterFailure(models.ErrorMessage(err, registerFailed))
	}

	logger.WithField("email", data.Email).Info("Registering account")

	env, err := s.transport.Post(ctx, registerPath, data)
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return session.RegisterFailure(models.ErrorMessage(err, models.StatusMessage(err, registerFailed)))
	}

	var resp authResponse
	if err := env.Decode(&resp); err != nil && !errors.Is(err, models.ErrEmptyData) {
		return session.RegisterFailure(models.ErrorMessage(err, registerFailed))
	}

	if !s.autoLogin || resp.Token == "" {
		logger.Info("Account created, login required")
		return session.RegisterSuccess(resp.User, "")
	}

	s.persist(ctx, resp.Token)
	logger.Info("Account created and logged in")
	return session.RegisterSuccess(resp.User, resp.Token)
}

// Logout handles session.LogoutRequestType. Local credentials are dropped
// whatever the server answers.
func (s *Service) Logout(ctx context.Context, ev intent.Event) intent.Event {
	logger := events.FromContext(ctx)

	env, err := s.transport.Post(ctx, logoutPath, nil)
	if err == nil {
		err = env.Rejection()
	}

	s.forget(ctx)

	if err != nil {
		logger.WithError(err).Warn("Server logout failed")
		return session.LogoutFailure(models.ErrorMessage(err, logoutFailed))
	}

	logger.Info("Logged out")
	return session.LogoutSuccess()
}

// ClientLogout handles session.ClientLogoutType. It never touches the
// network and dispatches nothing: the store already cleared the session.
func (s *Service) ClientLogout(ctx context.Context, ev intent.Event) intent.Event {
	s.forget(ctx)
	events.FromContext(ctx).Info("Credentials cleared locally")
	return intent.Event{}
}

// RestoreToken returns the persisted token if it is still usable. Expired
// tokens are removed from storage.
func (s *Service) RestoreToken() (string, error) {
	token, err := s.storage.Get(s.tokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read persisted token: %w", err)
	}

	info := InspectToken(token)
	if info.IsExpired() {
		s.logger.WithField("expired_at", info.ExpiresAt).Info("Discarding expired token")
		if err := s.storage.Remove(s.tokenKey); err != nil {
			s.logger.WithError(err).Warn("Failed to remove expired token")
		}
		return "", nil
	}

	s.transport.SetToken(token)
	return token, nil
}

// persist makes token the active credential. Storage failures are logged:
// the session still works for the lifetime of the process.
func (s *Service) persist(ctx context.Context, token string) {
	s.transport.SetToken(token)
	if err := s.storage.Set(s.tokenKey, token); err != nil {
		events.FromContext(ctx).WithError(err).Warn("Failed to persist token")
	}
}

func (s *Service) forget(ctx context.Context) {
	s.transport.SetToken("")
	if err := s.storage.Remove(s.tokenKey); err != nil {
		events.FromContext(ctx).WithError(err).Warn("Failed to remove persisted token")
	}
}
