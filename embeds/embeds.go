// Package embeds resolves embed URLs (videos, audio, posts) to provider HTML
// via oEmbed, with rate-limited outbound fetches and a shared cache.
package embeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pubsite/blocks"
)

var (
	// ErrNoProvider means no configured provider matches the URL.
	ErrNoProvider = errors.New("embeds: no provider for url")
	// ErrProvider means the provider answered with an error or unusable data.
	ErrProvider = errors.New("embeds: provider error")
)

// Embed is the subset of an oEmbed response the site renders.
type Embed struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	HTML         string `json:"html"`
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// Finder fetches embed data for a URL.
type Finder interface {
	Find(ctx context.Context, url string) (Embed, error)
}

// Cache stores resolved embeds by URL.
type Cache interface {
	Get(ctx context.Context, url string) (Embed, bool, error)
	Set(ctx context.Context, url string, e Embed, ttl time.Duration) error
}

// Resolver looks embeds up in the cache before asking the finder. Only
// successful lookups are cached, so a provider outage is retried on the next render.
type Resolver struct {
	finder Finder
	cache  Cache
	ttl    time.Duration
	log    zerolog.Logger
}

type Option func(*Resolver)

func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func NewResolver(f Finder, opts ...Option) *Resolver {
	r := &Resolver{
		finder: f,
		cache:  NewMemoryCache(),
		ttl:    24 * time.Hour,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the embed for url.
func (r *Resolver) Resolve(ctx context.Context, url string) (Embed, error) {
	if e, ok, err := r.cache.Get(ctx, url); err != nil {
		r.log.Warn().Err(err).Str("url", url).Msg("embed cache read failed")
	} else if ok {
		return e, nil
	}

	e, err := r.finder.Find(ctx, url)
	if err != nil {
		return Embed{}, fmt.Errorf("find embed %s: %w", url, err)
	}
	if err := r.cache.Set(ctx, url, e, r.ttl); err != nil {
		r.log.Warn().Err(err).Str("url", url).Msg("embed cache write failed")
	}
	return e, nil
}

// ResolveEmbed adapts Resolve for block rendering.
func (r *Resolver) ResolveEmbed(ctx context.Context, url string) (blocks.EmbedHTML, error) {
	e, err := r.Resolve(ctx, url)
	if err != nil {
		return blocks.EmbedHTML{}, err
	}
	return blocks.EmbedHTML{
		HTML:         e.HTML,
		Title:        e.Title,
		ProviderName: e.ProviderName,
		Width:        e.Width,
		Height:       e.Height,
	}, nil
}
