// Package sessions keeps the dashboard view state of every browser session in memory.
// A session left idle for longer than its TTL is evicted, unmounting its view.
package sessions

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/trezcool/schoolboard/core/views"
)

type Store struct {
	cache *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	c := cache.New(ttl, 2*ttl)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*views.Session); ok {
			s.Unmount()
		}
	})
	return &Store{cache: c}
}

// Get returns the session `id`, creating it if needed. Its TTL is renewed.
func (st *Store) Get(id string) *views.Session {
	if v, found := st.cache.Get(id); found {
		st.cache.SetDefault(id, v)
		return v.(*views.Session)
	}
	s := views.NewSession(id)
	if err := st.cache.Add(id, s, cache.DefaultExpiration); err != nil {
		// created concurrently
		if v, found := st.cache.Get(id); found {
			return v.(*views.Session)
		}
		st.cache.SetDefault(id, s)
	}
	return s
}

// Delete unmounts and forgets session `id`.
func (st *Store) Delete(id string) {
	st.cache.Delete(id) // calls OnEvicted
}

func (st *Store) Len() int {
	return st.cache.ItemCount()
}
