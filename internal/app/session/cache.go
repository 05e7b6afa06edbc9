package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vibecheck/internal/app/storage"
	"vibecheck/internal/app/user"
	"vibecheck/internal/pkg/logx"
)

// IdentityCache keeps the identity confirmed by `GET /users/me` under the `user_info` key. Entries
// are owned by a digest of the session token, never by a claim read from it, so only the holder
// of a verified token can reach them.
type IdentityCache struct {
	storage storage.LocalStorage
	logger  zerolog.Logger
}

type cachedIdentity struct {
	Subject  string         `json:"subject"`
	Identity *user.Identity `json:"identity"`
}

// NewIdentityCache returns a cache over s.
func NewIdentityCache(s storage.LocalStorage) *IdentityCache {
	return &IdentityCache{
		storage: s,
		logger:  logx.Component("identity_cache"),
	}
}

// tokenOwner is the storage owner of the entry for token.
func tokenOwner(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}

// Load returns the verified subject and identity cached for token. An unreadable or incomplete
// entry is treated as absent.
func (c *IdentityCache) Load(ctx context.Context, token string) (string, *user.Identity, bool) {
	if c == nil || token == "" {
		return "", nil, false
	}

	raw, err := c.storage.Get(ctx, tokenOwner(token), storage.KeyUserInfo)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("Identity cache read failed")
		}
		return "", nil, false
	}

	var entry cachedIdentity
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Msg("Discarding unreadable cached identity")
		return "", nil, false
	}

	if entry.Subject == "" || entry.Identity == nil || !entry.Identity.MatchesSubject(entry.Subject) {
		return "", nil, false
	}

	return entry.Subject, entry.Identity, true
}

// Save caches the identity verified for token.
func (c *IdentityCache) Save(ctx context.Context, token, subject string, identity *user.Identity) error {
	if c == nil || token == "" || subject == "" || identity == nil {
		return nil
	}

	raw, err := json.Marshal(cachedIdentity{Subject: subject, Identity: identity})
	if err != nil {
		return fmt.Errorf("encode cached identity: %w", err)
	}

	return c.storage.Set(ctx, tokenOwner(token), storage.KeyUserInfo, raw)
}

// Clear drops the identity cached for token.
func (c *IdentityCache) Clear(ctx context.Context, token string) error {
	if c == nil || token == "" {
		return nil
	}
	return c.storage.Delete(ctx, tokenOwner(token), storage.KeyUserInfo)
}
