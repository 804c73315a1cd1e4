package pubsite

import (
	"context"
	"sync"
	"time"
)

// PageCache is an in-memory cache of live pages and tags with TTL.
// Publishing, unpublishing and deleting through the admin invalidate it.
type PageCache struct {
	mu      sync.RWMutex
	pages   []Page
	byPath  map[string]int
	tags    []string
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewPageCache creates a PageCache backed by the given Store.
func NewPageCache(s *Store, ttl time.Duration) *PageCache {
	return &PageCache{store: s, ttl: ttl}
}

func (c *PageCache) valid() bool {
	return c.pages != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PageCache) Invalidate() {
	c.mu.Lock()
	c.pages = nil
	c.byPath = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *PageCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	pages, err := c.store.LivePages(ctx, "")
	if err != nil {
		return err
	}
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return err
	}
	if pages == nil {
		pages = []Page{}
	}
	byPath := make(map[string]int, len(pages))
	for i, p := range pages {
		byPath[p.URLPath] = i
	}
	c.pages = pages
	c.byPath = byPath
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached pages after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PageCache) ensureLoaded(ctx context.Context) ([]Page, map[string]int, []string, error) {
	c.mu.RLock()
	if c.valid() {
		pages, byPath, tags := c.pages, c.byPath, c.tags
		c.mu.RUnlock()
		return pages, byPath, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, nil, err
	}
	return c.pages, c.byPath, c.tags, nil
}

// LivePage returns the live page at urlPath.
func (c *PageCache) LivePage(ctx context.Context, urlPath string) (Page, error) {
	pages, byPath, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return Page{}, err
	}
	i, ok := byPath[urlPath]
	if !ok {
		return Page{}, ErrNotFound
	}
	return pages[i], nil
}

// LivePages returns live pages of typ (all types when empty), newest first.
func (c *PageCache) LivePages(ctx context.Context, typ PageType) ([]Page, error) {
	pages, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return filterPages(pages, func(p Page) bool { return typ == "" || p.Type == typ }), nil
}

// LiveChildren returns live children of parentID of typ, newest first.
func (c *PageCache) LiveChildren(ctx context.Context, parentID string, typ PageType) ([]Page, error) {
	pages, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return filterPages(pages, func(p Page) bool {
		return p.ParentID == parentID && (typ == "" || p.Type == typ)
	}), nil
}

// ByTag returns live blog posts carrying tag exactly, newest first.
func (c *PageCache) ByTag(ctx context.Context, tag string) ([]Page, error) {
	pages, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return filterPages(pages, func(p Page) bool {
		if p.Type != BlogPageType {
			return false
		}
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

// ListTags returns all unique tags from live posts.
func (c *PageCache) ListTags(ctx context.Context) ([]string, error) {
	_, _, tags, err := c.ensureLoaded(ctx)
	return tags, err
}

func filterPages(pages []Page, keep func(Page) bool) []Page {
	var out []Page
	for _, p := range pages {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
