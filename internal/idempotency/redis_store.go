package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * 24 * time.Hour

// RedisStore implements domain.PaymentReferenceStore on Redis. A claim
// is a SetNX with TTL: the first caller wins, a retry after a failed
// ledger write releases the key so the same reference can be reused.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. An empty prefix defaults to
// "ledger:payref:"; a zero ttl defaults to 30 days.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ledger:payref:"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Claim reserves the reference for the loan. Returns false when the
// reference was already claimed.
func (s *RedisStore) Claim(ctx context.Context, loanID uuid.UUID, reference string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(loanID, reference), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim payment reference: %w", err)
	}
	return ok, nil
}

// Release frees a claimed reference after a failed ledger write.
func (s *RedisStore) Release(ctx context.Context, loanID uuid.UUID, reference string) error {
	if err := s.client.Del(ctx, s.key(loanID, reference)).Err(); err != nil {
		return fmt.Errorf("release payment reference: %w", err)
	}
	return nil
}

func (s *RedisStore) key(loanID uuid.UUID, reference string) string {
	return s.prefix + loanID.String() + ":" + reference
}
