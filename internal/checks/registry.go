package checks

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Check)
	mu       sync.RWMutex
)

func Register(c Check) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[c.ID()]; exists {
		panic(fmt.Sprintf("check %s already registered", c.ID()))
	}
	registry[c.ID()] = c
}

// List returns every registered check ordered by ID.
func List() []Check {
	mu.RLock()
	defer mu.RUnlock()
	return sortedLocked()
}

func sortedLocked() []Check {
	all := make([]Check, 0, len(registry))
	for _, c := range registry {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID() < all[j].ID()
	})
	return all
}

func Lookup(id string) (Check, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[strings.TrimSpace(id)]
	return c, ok
}

// Resolve returns the checks named by ids, ordered by ID and without
// duplicates. An unknown ID is an error.
func Resolve(ids []string) ([]Check, error) {
	mu.RLock()
	defer mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	var selected []Check
	var unknown []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c, ok := registry[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		selected = append(selected, c)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown check(s): %s", strings.Join(unknown, ", "))
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].ID() < selected[j].ID()
	})
	return selected, nil
}

// IDs returns the registered check IDs in order.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	all := sortedLocked()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID()
	}
	return ids
}
