package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// CredentialStore is the durable home of the bearer credential.
// Load returns "" when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Session holds the authenticated user and the bearer credential. It is the
// only writer of the credential store.
type Session struct {
	client client.Client
	store  CredentialStore
	log    logging.Logger

	mu    sync.RWMutex
	token string
	user  *models.User
}

func NewSession(c client.Client, store CredentialStore, log logging.Logger) *Session {
	return &Session{client: c, store: store, log: log.With("module", "session")}
}

// Init restores a stored credential. A credential that is expired or that
// the backend does not accept is purged and the session stays anonymous;
// only a failure to read the store is returned.
func (s *Session) Init(ctx context.Context) error {
	tok, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if tok == "" {
		return nil
	}

	if err := checkExpiry(tok, time.Now()); err != nil {
		s.log.Info(ctx, "stored credential expired", "error", err)
		s.purge(ctx)
		return nil
	}

	u, err := s.client.Me(ctx, tok)
	if err != nil {
		s.log.Warn(ctx, "stored credential rejected", "error", err)
		s.purge(ctx)
		return nil
	}

	s.set(tok, u)
	s.log.Info(ctx, "session restored", "user", u.Username)
	return nil
}

// checkExpiry inspects the exp claim without verifying the signature.
// Tokens that are not JWTs are left to the backend.
func checkExpiry(tok string, now time.Time) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return common.ErrTokenExpired
	}
	return nil
}

func (s *Session) Login(ctx context.Context, username, password string) (models.User, error) {
	creds := models.Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return models.User{}, err
	}

	res, err := s.client.Login(ctx, creds)
	if err != nil {
		return models.User{}, fmt.Errorf("login: %w", err)
	}
	return s.accept(ctx, res)
}

func (s *Session) Register(ctx context.Context, reg models.Registration) (models.User, error) {
	if err := reg.Validate(); err != nil {
		return models.User{}, err
	}

	res, err := s.client.Register(ctx, reg)
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	return s.accept(ctx, res)
}

func (s *Session) accept(ctx context.Context, res client.AuthResult) (models.User, error) {
	if res.Token == "" {
		return models.User{}, fmt.Errorf("%w: no access token", client.ErrMalformedPayload)
	}
	if err := s.store.Save(ctx, res.Token); err != nil {
		return models.User{}, fmt.Errorf("save credential: %w", err)
	}
	s.set(res.Token, res.User)
	s.log.Info(ctx, "authenticated", "user", res.User.Username, "role", res.User.Role)
	return res.User, nil
}

// Logout tells the backend on a best-effort basis, then always forgets the
// credential locally.
func (s *Session) Logout(ctx context.Context) error {
	if tok := s.Token(); tok != "" {
		if err := s.client.Logout(ctx, tok); err != nil {
			s.log.Warn(ctx, "backend logout failed", "error", err)
		}
	}

	s.set("", models.User{})
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *Session) set(tok string, u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	if tok == "" {
		s.user = nil
		return
	}
	s.user = &u
}

func (s *Session) purge(ctx context.Context) {
	s.set("", models.User{})
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error(ctx, "failed to clear credential", "error", err)
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// RequireToken returns the credential or common.ErrNoCredential.
func (s *Session) RequireToken() (string, error) {
	tok := s.Token()
	if tok == "" {
		return "", common.ErrNoCredential
	}
	return tok, nil
}

// ChangeRole switches the current user's role. The backend reissues the
// credential, which replaces the stored one.
func (s *Session) ChangeRole(ctx context.Context, role models.Role) (models.User, error) {
	tok, err := s.RequireToken()
	if err != nil {
		return models.User{}, err
	}

	res, err := s.client.ChangeRole(ctx, tok, role)
	if err != nil {
		s.Observe(ctx, err)
		return models.User{}, fmt.Errorf("change role: %w", err)
	}
	if res.Token == "" {
		res.Token = tok
	}
	return s.accept(ctx, res)
}

func (s *Session) Users(ctx context.Context) ([]models.User, error) {
	tok, err := s.RequireToken()
	if err != nil {
		return nil, err
	}
	users, err := s.client.Users(ctx, tok)
	if err != nil {
		s.Observe(ctx, err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Observe purges the session when err shows the backend no longer accepts
// the credential. 403 means the user lacks a role, not that the
// credential is bad, so it is left alone.
func (s *Session) Observe(ctx context.Context, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && s.Authenticated() {
		s.log.Warn(ctx, "credential rejected, logging out", "error", err)
		s.purge(ctx)
	}
}
