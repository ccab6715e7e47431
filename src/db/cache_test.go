package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearTransactionCachesIsPerUser(t *testing.T) {
	InitCache()

	keyA1 := TransactionsCacheKey(1, "depository,credit::2024:3")
	keyA2 := TransactionsCacheKey(1, "depository::2024:0")
	keyB := TransactionsCacheKey(2, "depository,credit::2024:3")

	SetTransactionCache(keyA1, "a1")
	SetTransactionCache(keyA2, "a2")
	SetTransactionCache(keyB, "b")
	Cache.Wait()

	_, ok := Cache.Get(keyA1)
	require.True(t, ok)

	ClearTransactionCaches(1)
	Cache.Wait()

	_, ok = Cache.Get(keyA1)
	assert.False(t, ok)
	_, ok = Cache.Get(keyA2)
	assert.False(t, ok)
	_, ok = Cache.Get(keyB)
	assert.True(t, ok)

	// the registry forgets only the cleared user's keys
	TransactionCacheKeys.RLock()
	defer TransactionCacheKeys.RUnlock()
	assert.NotContains(t, TransactionCacheKeys.m, keyA1)
	assert.NotContains(t, TransactionCacheKeys.m, keyA2)
	assert.Contains(t, TransactionCacheKeys.m, keyB)
}

func TestAccountCacheSetAndDel(t *testing.T) {
	InitCache()

	key := AccountsCacheKey(7)
	SetAccountCache(key, "payload")
	Cache.Wait()

	got, ok := Cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", got)

	DelAccountCache(key)
	Cache.Wait()

	_, ok = Cache.Get(key)
	assert.False(t, ok)
}
