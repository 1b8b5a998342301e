package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrResetCodeInvalid = errors.New("reset code is invalid or has expired")

// MaxResetAttempts is the number of wrong guesses after which a pending code
// is discarded.
const MaxResetAttempts = 5

// consumeResetCode compares and deletes in one step so a code is used at most
// once. Wrong guesses are counted; the code is dropped at the limit.
// KEYS: code, attempts. ARGV: candidate, limit, attempts ttl in ms.
var consumeResetCode = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call('DEL', KEYS[1], KEYS[2])
	return 1
end
local n = redis.call('INCR', KEYS[2])
if n == 1 then
	redis.call('PEXPIRE', KEYS[2], ARGV[3])
end
if n >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1], KEYS[2])
end
return 0
`)

// ResetCodeStore keeps one pending password reset code per email address.
type ResetCodeStore struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewResetCodeStore(cm *CacheManager, ttl time.Duration) *ResetCodeStore {
	if ttl <= 0 {
		ttl = ResetCacheConfig.TTL
	}
	return &ResetCodeStore{helper: cm.Reset, ttl: ttl}
}

func (s *ResetCodeStore) TTL() time.Duration {
	return s.ttl
}

func (s *ResetCodeStore) Available() bool {
	return s.helper.Available()
}

func attemptsKey(email string) string {
	return "attempts:" + email
}

// Save replaces any previous code for the email and clears its failure count.
func (s *ResetCodeStore) Save(ctx context.Context, email, code string) error {
	if !s.helper.Available() {
		return ErrCacheNotAvailable
	}
	_, err := s.helper.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.helper.GetCacheKey(email), code, s.ttl)
		pipe.Del(ctx, s.helper.GetCacheKey(attemptsKey(email)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	return nil
}

// Consume accepts the code once. After MaxResetAttempts wrong guesses the
// pending code is gone and a new one must be requested.
func (s *ResetCodeStore) Consume(ctx context.Context, email, code string) error {
	if !s.helper.Available() {
		return ErrCacheNotAvailable
	}
	keys := []string{s.helper.GetCacheKey(email), s.helper.GetCacheKey(attemptsKey(email))}
	ok, err := consumeResetCode.Run(ctx, s.helper.client, keys, code, MaxResetAttempts, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("check reset code: %w", err)
	}
	if ok != 1 {
		return ErrResetCodeInvalid
	}
	return nil
}
