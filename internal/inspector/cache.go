package inspector

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// lookupCache memoizes successful lookups for the lifetime of one inspector
// and collapses concurrent identical lookups into a single request.
type lookupCache struct {
	data  sync.Map
	group singleflight.Group
}

func (c *lookupCache) do(key string, fn func() (any, error)) (any, error) {
	if v, ok := c.data.Load(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.data.Load(key); ok {
			return v, nil
		}
		v, err := fn()
		if err == nil {
			c.data.Store(key, v)
		}
		return v, err
	})
	return v, err
}
