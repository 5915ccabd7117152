package auth

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultRevocationSize = 10000

// RevocationList remembers logged-out token IDs until they would have expired
// anyway. It is process-local; a restart forgets revocations.
type RevocationList struct {
	cache *expirable.LRU[string, struct{}]
}

func NewRevocationList(size int, ttl time.Duration) *RevocationList {
	if size <= 0 {
		size = defaultRevocationSize
	}
	return &RevocationList{cache: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (r *RevocationList) Revoke(tokenID string) {
	if tokenID == "" {
		return
	}
	r.cache.Add(tokenID, struct{}{})
}

func (r *RevocationList) Revoked(tokenID string) bool {
	if r == nil || tokenID == "" {
		return false
	}
	return r.cache.Contains(tokenID)
}
