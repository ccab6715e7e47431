package db

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Cache keys are tracked per type so that every entry of a type can be
// dropped when a write invalidates it.
var (
	Cache                *ristretto.Cache
	AccountCacheKeys     = keySet{m: make(map[string]struct{})}
	TransactionCacheKeys = keySet{m: make(map[string]struct{})}
)

type keySet struct {
	sync.RWMutex
	m map[string]struct{}
}

func InitCache() {
	var err error
	Cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
}

func AccountsCacheKey(userID int64) string {
	return fmt.Sprintf("accounts:%d", userID)
}

func TransactionsCacheKey(userID int64, filterKey string) string {
	return fmt.Sprintf("transactions:%d:%s", userID, filterKey)
}

func SetAccountCache(cacheKey string, value interface{}) {
	AccountCacheKeys.Lock()
	AccountCacheKeys.m[cacheKey] = struct{}{}
	AccountCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

func DelAccountCache(cacheKey string) {
	AccountCacheKeys.Lock()
	delete(AccountCacheKeys.m, cacheKey)
	AccountCacheKeys.Unlock()
	Cache.Del(cacheKey)
}

func SetTransactionCache(cacheKey string, value interface{}) {
	TransactionCacheKeys.Lock()
	TransactionCacheKeys.m[cacheKey] = struct{}{}
	TransactionCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

// ClearTransactionCaches drops every cached transaction response for one
// user, whatever filter it was stored under.
func ClearTransactionCaches(userID int64) {
	prefix := fmt.Sprintf("transactions:%d:", userID)
	TransactionCacheKeys.Lock()
	for key := range TransactionCacheKeys.m {
		if strings.HasPrefix(key, prefix) {
			Cache.Del(key)
			delete(TransactionCacheKeys.m, key)
		}
	}
	TransactionCacheKeys.Unlock()
}
