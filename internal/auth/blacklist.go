package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// defaultRevokeTTL bounds how long an undecodable token stays revoked.
	// Over-revoking a malformed token is the safe direction.
	defaultRevokeTTL = 24 * time.Hour

	// SweepInterval is how often the background sweep purges expired entries.
	SweepInterval = time.Hour
)

// Blacklist tracks revoked tokens until their natural expiry, so a logged-out
// token is rejected even though it is still cryptographically valid. State is
// in-memory and process-local; a multi-instance deployment would need a shared
// key-value store behind the same Revoke/IsRevoked/Sweep surface.
type Blacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewBlacklist creates an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Revoke records the token as invalidated until its embedded expiry. The
// expiry is read with an unverified decode; a token that cannot be decoded is
// stored with a default window instead of being rejected, because revocation
// must never fail outright. Revoking twice is a no-op.
func (b *Blacklist) Revoke(token string) {
	if token == "" {
		return
	}
	expiresAt := b.now().Add(defaultRevokeTTL)
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	b.mu.Lock()
	b.tokens[token] = expiresAt
	b.mu.Unlock()
}

// IsRevoked reports whether the token is currently revoked. An entry whose
// expiry has passed is purged on this read and treated as not revoked.
func (b *Blacklist) IsRevoked(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiresAt, ok := b.tokens[token]
	if !ok {
		return false
	}
	if b.now().After(expiresAt) {
		delete(b.tokens, token)
		return false
	}
	return true
}

// Sweep removes every expired entry and returns how many were purged. It
// bounds memory growth independent of read traffic.
func (b *Blacklist) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	purged := 0
	for token, expiresAt := range b.tokens {
		if now.After(expiresAt) {
			delete(b.tokens, token)
			purged++
		}
	}
	return purged
}

// Len reports the number of live entries.
func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Start runs the periodic sweep until ctx ends.
func (b *Blacklist) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.Sweep()
			}
		}
	}()
}
