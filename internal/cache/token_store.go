package cache

import (
	"context"
	"errors"
	"time"
)

// TokenDenylist remembers logged-out session tokens by their jti until they expire.
type TokenDenylist struct {
	helper *CacheHelper
}

func NewTokenDenylist(cm *CacheManager) *TokenDenylist {
	return &TokenDenylist{helper: cm.Token}
}

// Revoke stores the token id until expiresAt. Tokens that are already expired
// are not stored.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.helper.SetString(ctx, tokenID, "1", ttl)
}

// IsRevoked reports whether the token was revoked. Without Redis nothing is revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ok, err := d.helper.Exists(ctx, tokenID)
	if errors.Is(err, ErrCacheNotAvailable) {
		return false, nil
	}
	return ok, err
}
