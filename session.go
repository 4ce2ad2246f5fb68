package board

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultSessionTTL bounds server-side session lifetime when the config
// does not say otherwise.
var DefaultSessionTTL = 24 * time.Hour

// SessionManager owns the session lifecycle: it mints opaque tokens, binds
// them to a user id server-side, and resolves tokens back to a fresh
// identity on every request. It never caches user records.
type SessionManager struct {
	store    SessionStore
	provider IdentityProvider
	secret   []byte
	ttl      time.Duration
	logger   Logger
	now      func() time.Time
}

func NewSessionManager(store SessionStore, provider IdentityProvider, secret string) *SessionManager {
	return &SessionManager{
		store:    store,
		provider: provider,
		secret:   []byte(secret),
		ttl:      DefaultSessionTTL,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (m *SessionManager) WithTTL(ttl time.Duration) *SessionManager {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

func (m *SessionManager) WithLogger(l Logger) *SessionManager {
	m.logger = l
	return m
}

// TTL returns the configured server-side session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create binds a new opaque token to the identity's user id and returns
// the token. Only the compact id reference is stored, never the record.
func (m *SessionManager) Create(ctx context.Context, identity Identity) (string, error) {
	if identity == nil {
		return "", ErrIdentityNotFound
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "identity has a malformed user id")
	}

	token, err := makeSessionToken()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	now := m.now()
	record := &SessionRecord{
		Token:     token,
		UserID:    &uid,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Create(ctx, record); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session")
	}

	return token, nil
}

// Restore resolves a token to the current user record. Anonymous comes
// back as (nil, nil): a missing, expired, or unbound session, or a user
// that no longer exists, is not a request failure.
func (m *SessionManager) Restore(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return nil, nil
	}

	record, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnableToFindSession) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	if record.Expired(m.now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			m.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, nil
	}

	if record.UserID == nil {
		return nil, nil
	}

	identity, err := m.provider.FindIdentityByID(ctx, record.UserID.String())
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return identity, nil
}

// Destroy ends the session. Destroying an unknown token succeeds.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to destroy session")
	}
	return nil
}

// SignToken produces the cookie value for a token: the token itself plus
// an HMAC-SHA256 signature under the session secret. The payload stays
// opaque; the signature only proves the server issued it.
func (m *SessionManager) SignToken(token string) string {
	return token + "." + m.signature(token)
}

// VerifyToken strips and checks the signature from a cookie value. A
// missing or forged signature yields ErrUnableToFindSession so tampered
// cookies degrade to anonymous instead of erroring the request.
func (m *SessionManager) VerifyToken(cookie string) (string, error) {
	token, sig, found := strings.Cut(cookie, ".")
	if !found || token == "" {
		return "", ErrUnableToFindSession
	}

	if !hmac.Equal([]byte(sig), []byte(m.signature(token))) {
		return "", ErrUnableToFindSession
	}

	return token, nil
}

func (m *SessionManager) signature(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func makeSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
