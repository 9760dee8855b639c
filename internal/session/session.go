// Package session holds who is signed in for one client: the current user
// and the authentication state derived from the stored tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/naukovi-znahidky/client/types"
	"go.uber.org/zap"
)

// State is the authentication state of a session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fallback messages for failures without a server message.
const (
	msgLoginFailed    = "Помилка входу"
	msgRegisterFailed = "Помилка реєстрації"
	msgProfileFailed  = "Помилка оновлення профілю"
)

// AuthAPI is the part of the backend the session needs.
// *services.AuthService implements it.
type AuthAPI interface {
	Register(ctx context.Context, reg types.Registration) (types.User, error)
	Login(ctx context.Context, creds types.Credentials) (tokens.Pair, error)
	Me(ctx context.Context) (types.User, error)
	UpdateProfile(ctx context.Context, update types.ProfileUpdate) (types.User, error)
}

// Result is the outcome of a user-facing session operation.
type Result struct {
	Success bool
	Error   string
}

func failure(err error, fallback string) Result {
	return Result{Error: apiclient.Message(err, fallback)}
}

// Snapshot is a consistent read of the session.
type Snapshot struct {
	User            *types.User
	IsAuthenticated bool
	IsLoading       bool
	State           State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithValidator replaces the local input validation.
func WithValidator(fn func(any) error) Option {
	return func(s *Store) {
		if fn != nil {
			s.validate = fn
		}
	}
}

// Store is the session of one client. It is safe for concurrent use;
// readers never block on network calls.
type Store struct {
	auth     AuthAPI
	tokens   tokens.Store
	validate func(any) error
	logger   *zap.Logger

	initOnce sync.Once

	mu    sync.RWMutex
	state State
	user  *types.User
}

// New constructs an uninitialised Store.
func New(auth AuthAPI, store tokens.Store, opts ...Option) *Store {
	s := &Store{
		auth:     auth,
		tokens:   store,
		validate: forms.Validate,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize resolves the stored tokens into a user. Only the first call
// does any work.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.setState(StateLoading, nil)

		pair, err := s.tokens.Load(ctx)
		if err != nil {
			s.logger.Warn("load tokens", zap.Error(err))
			s.setState(StateAnonymous, nil)
			return
		}
		if pair.Access == "" {
			s.setState(StateAnonymous, nil)
			return
		}

		user, err := s.auth.Me(ctx)
		if err != nil {
			s.logger.Warn("restore session", zap.Error(err))
			if clearErr := s.tokens.Clear(ctx); clearErr != nil {
				s.logger.Warn("clear tokens", zap.Error(clearErr))
			}
			s.setState(StateAnonymous, nil)
			return
		}
		s.setState(StateAuthenticated, &user)
	})
}

// Login exchanges credentials for tokens, persists them and loads the
// user. Tokens are not kept when the user cannot be loaded.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	creds := types.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate(creds); err != nil {
		return failure(err, msgLoginFailed)
	}

	pair, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.logger.Warn("login failed", zap.String("email", creds.Email), zap.Error(err))
		return failure(err, msgLoginFailed)
	}
	if err := s.tokens.Save(ctx, pair); err != nil {
		s.logger.Warn("save tokens", zap.Error(err))
		return Result{Error: msgLoginFailed}
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		s.logger.Warn("load user after login", zap.Error(err))
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.logger.Warn("clear tokens", zap.Error(clearErr))
		}
		return failure(err, msgLoginFailed)
	}

	s.setState(StateAuthenticated, &user)
	s.logger.Info("signed in", zap.Int("user_id", user.ID))
	return Result{Success: true}
}

// Register validates the form locally, creates the account and signs in
// with the same credentials.
func (s *Store) Register(ctx context.Context, reg types.Registration) Result {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	if err := s.validate(reg); err != nil {
		return failure(err, msgRegisterFailed)
	}

	if _, err := s.auth.Register(ctx, reg); err != nil {
		s.logger.Warn("registration failed", zap.String("email", reg.Email), zap.Error(err))
		return failure(err, msgRegisterFailed)
	}
	return s.Login(ctx, reg.Email, reg.Password)
}

// Logout forgets the tokens and the user. The backend is not told.
func (s *Store) Logout(ctx context.Context) error {
	err := s.tokens.Clear(ctx)
	s.setState(StateAnonymous, nil)
	s.logger.Info("signed out")
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// UpdateUser replaces the current user without a server call.
func (s *Store) UpdateUser(user types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return
	}
	s.user = &user
}

// UpdateProfile saves the profile form and replaces the current user with
// the server's reply.
func (s *Store) UpdateProfile(ctx context.Context, update types.ProfileUpdate) Result {
	if !s.IsAuthenticated() {
		return failure(apiclient.ErrSessionExpired, msgProfileFailed)
	}
	update.Username = strings.TrimSpace(update.Username)
	if err := s.validate(update); err != nil {
		return failure(err, msgProfileFailed)
	}

	user, err := s.auth.UpdateProfile(ctx, update)
	if err != nil {
		s.logger.Warn("profile update failed", zap.Error(err))
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.Expire()
		}
		return failure(err, msgProfileFailed)
	}
	s.UpdateUser(user)
	return Result{Success: true}
}

// Expire drops the user after the API client gave up on the tokens. It
// is the target of the client's session-expired hook.
func (s *Store) Expire() {
	s.mu.Lock()
	wasAuthenticated := s.state == StateAuthenticated
	s.state = StateAnonymous
	s.user = nil
	s.mu.Unlock()
	if wasAuthenticated {
		s.logger.Info("session expired")
	}
}

func (s *Store) setState(state State, user *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		State:           s.state,
		IsAuthenticated: s.state == StateAuthenticated,
		IsLoading:       s.state == StateUninitialized || s.state == StateLoading,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// CurrentUser returns a copy of the signed-in user.
func (s *Store) CurrentUser() (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return types.User{}, false
	}
	return *s.user, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
