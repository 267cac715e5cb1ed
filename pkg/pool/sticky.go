package pool

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// stickyCache maps sticky keys to descriptor IDs. Entries expire after the
// TTL, which is renewed on every hit.
type stickyCache struct {
	ttl   time.Duration
	items *cache.Cache
}

func newStickyCache(ttl time.Duration) *stickyCache {
	if ttl <= 0 {
		return &stickyCache{ttl: cache.NoExpiration, items: cache.New(cache.NoExpiration, 0)}
	}
	return &stickyCache{ttl: ttl, items: cache.New(ttl, ttl)}
}

func (s *stickyCache) Get(key string) (string, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (s *stickyCache) Set(key, id string) {
	s.items.Set(key, id, s.ttl)
}

func (s *stickyCache) Delete(key string) {
	s.items.Delete(key)
}

// DeleteID drops every binding that points at id.
func (s *stickyCache) DeleteID(id string) {
	for key, item := range s.items.Items() {
		if item.Object.(string) == id {
			s.items.Delete(key)
		}
	}
}

func (s *stickyCache) Len() int {
	return s.items.ItemCount()
}
