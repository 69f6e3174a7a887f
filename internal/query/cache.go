// Package query holds the viewer's query cache: the last page fetched per
// (table, filters) key, served stale while a refresh is in flight.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/tgate/dataviewer/internal/client"
)

const (
	// DefaultStaleTime is how long a fetched page is served without a refresh.
	DefaultStaleTime = 30 * time.Second
	fetchTimeout     = 30 * time.Second
	updateBuffer     = 64
)

// Fetcher loads one page of a table.
type Fetcher interface {
	FetchTable(ctx context.Context, table string, f client.Filters) (*client.TablePage, error)
}

// Key identifies one cached page.
type Key struct {
	Table   string
	Filters client.Filters
}

// Entry is the cached state of one key. Page survives failed refreshes so
// the last good rows stay on screen next to Err.
type Entry struct {
	Page      *client.TablePage
	Err       error
	Stale     bool
	Fetching  bool
	UpdatedAt time.Time
}

// Update announces that the entry for Key changed.
type Update struct {
	Key   Key
	Entry Entry
}

type entry struct {
	Entry
	again bool // a refresh was requested while one was in flight
}

// Cache deduplicates fetches per key and tracks which key of each table is
// on screen. It implements live.Invalidator.
type Cache struct {
	fetcher   Fetcher
	staleTime time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[Key]*entry
	active  map[string]Key
	updates chan Update
}

// NewCache creates a cache. A non-positive staleTime uses DefaultStaleTime.
func NewCache(f Fetcher, staleTime time.Duration) *Cache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Cache{
		fetcher:   f,
		staleTime: staleTime,
		now:       time.Now,
		entries:   make(map[Key]*entry),
		active:    make(map[string]Key),
		updates:   make(chan Update, updateBuffer),
	}
}

// Updates delivers entry changes. Updates are dropped rather than blocking a
// fetch when nobody reads; readers can always fall back to Get.
func (c *Cache) Updates() <-chan Update {
	return c.updates
}

// Get returns the entry for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Watch makes key the on-screen key of its table and returns what is cached
// for it. A missing, stale or expired entry is refreshed in the background.
func (c *Cache) Watch(key Key) Entry {
	c.mu.Lock()
	if prev, watched := c.active[key.Table]; !watched || prev != key {
		c.active[key.Table] = key
		c.evictLocked()
	}
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	needsFetch := !e.Fetching && (!ok || e.Stale || c.now().Sub(e.UpdatedAt) > c.staleTime)
	snapshot := e.Entry
	c.mu.Unlock()

	if needsFetch {
		c.fetch(key)
		snapshot.Fetching = true
	}
	return snapshot
}

// evictLocked drops entries that are off screen, idle and older than the
// stale time. c.mu must be held.
func (c *Cache) evictLocked() {
	watched := make(map[Key]bool, len(c.active))
	for _, k := range c.active {
		watched[k] = true
	}
	now := c.now()
	for k, e := range c.entries {
		if watched[k] || e.Fetching || now.Sub(e.UpdatedAt) <= c.staleTime {
			continue
		}
		delete(c.entries, k)
	}
}

// Invalidate marks every cached page of table stale.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if k.Table == table {
			e.Stale = true
		}
	}
}

// Refetch refreshes the on-screen page of table, if any.
func (c *Cache) Refetch(table string) {
	c.mu.Lock()
	key, ok := c.active[table]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.fetch(key)
}

// Retry refreshes key after a failed fetch.
func (c *Cache) Retry(key Key) {
	c.fetch(key)
}

func (c *Cache) fetch(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	if e.Fetching {
		e.again = true
		c.mu.Unlock()
		return
	}
	e.Fetching = true
	snapshot := e.Entry
	c.mu.Unlock()

	c.publish(Update{Key: key, Entry: snapshot})
	go c.run(key)
}

func (c *Cache) run(key Key) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	page, err := c.fetcher.FetchTable(ctx, key.Table, key.Filters)
	cancel()

	c.mu.Lock()
	e := c.entries[key]
	e.Fetching = false
	if err != nil {
		e.Err = err
	} else {
		e.Page = page
		e.Err = nil
		e.Stale = false
		e.UpdatedAt = c.now()
	}
	again := e.again
	e.again = false
	snapshot := e.Entry
	c.mu.Unlock()

	if err != nil {
		glog.Warningf("query: %s page %d: %v", key.Table, key.Filters.Page, err)
	}
	c.publish(Update{Key: key, Entry: snapshot})
	if again {
		c.fetch(key)
	}
}

func (c *Cache) publish(u Update) {
	select {
	case c.updates <- u:
	default:
		glog.V(1).Infof("query: update buffer full, dropping %s update", u.Key.Table)
	}
}
