package idempotency

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisStore_Defaults(t *testing.T) {
	store := NewRedisStore(nil, "", 0)
	assert.Equal(t, "ledger:payref:", store.prefix)
	assert.Equal(t, defaultTTL, store.ttl)

	store = NewRedisStore(nil, "custom:", time.Hour)
	assert.Equal(t, "custom:", store.prefix)
	assert.Equal(t, time.Hour, store.ttl)
}

func TestRedisStore_Key(t *testing.T) {
	store := NewRedisStore(nil, "", 0)
	loanID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	key := store.key(loanID, "txn-9")
	assert.Equal(t, "ledger:payref:11111111-2222-3333-4444-555555555555:txn-9", key)
}
