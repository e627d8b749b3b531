package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bodega.org/internal/inventory"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultIssuer     = "bodega"
)

// dummyHash is compared against when the username does not resolve, to keep
// the failure path's timing in line with a real bcrypt comparison.
var dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service composes credential verification, token issuance, revocation and
// session resolution into the login/refresh/logout operations.
type Service struct {
	store      inventory.Store
	blacklist  *Blacklist
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth service. A missing signing secret is a
// configuration error, not a runtime condition.
func NewService(store inventory.Store, secret string, blacklist *Blacklist, opts ...ServiceOption) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if blacklist == nil {
		blacklist = NewBlacklist()
	}
	svc := &Service{
		store:      store,
		blacklist:  blacklist,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Blacklist exposes the revocation list owned by the service.
func (s *Service) Blacklist() *Blacklist { return s.blacklist }

// validateCredentials resolves a username/password pair to a user record.
// Unknown username, soft-deleted user and wrong password all collapse into the
// same rejection, so the caller cannot enumerate accounts.
func (s *Service) validateCredentials(ctx context.Context, username, password string) (*inventory.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			// Burn a comparison so the miss costs the same as a mismatch.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Login validates credentials and issues a fresh token pair. On success the
// returned user has been re-read from the store; callers must serialize its
// Sanitized form only.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *inventory.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	user, err := s.validateCredentials(ctx, username, password)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh verifies the presented refresh token and issues a fresh pair from
// the user's current state. The consumed refresh token is not revoked; it
// stays valid until its own expiry or an explicit logout.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *inventory.User, error) {
	if s.blacklist.IsRevoked(refreshToken) {
		return TokenPair{}, nil, ErrTokenRevoked
	}
	claims, err := s.ParseAndValidate(refreshToken)
	if err != nil {
		return TokenPair{}, nil, ErrUnauthenticated
	}
	user, err := s.store.Users().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return TokenPair{}, nil, fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return TokenPair{}, nil, err
	}
	pair, err := s.IssueTokenPair(user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Logout revokes the presented token. It never fails: a malformed token is
// blacklisted with a default expiry, and revoking twice is a no-op.
func (s *Service) Logout(token string) {
	s.blacklist.Revoke(token)
}

// Resolve validates an incoming raw token and produces the identity claim set
// for the request. The revocation check uses the exact token string presented,
// since blacklist entries are keyed by raw value, not by subject.
func (s *Service) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	if s.blacklist.IsRevoked(token) {
		return Identity{}, ErrTokenRevoked
	}
	claims, err := s.ParseAndValidate(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// SessionUser re-reads the authenticated user's current record for the
// session endpoint. Token claims are a routing hint only; the store is the
// authority for anything returned to the client.
func (s *Service) SessionUser(ctx context.Context, userID string) (*inventory.User, error) {
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found for session", ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}
