// Package pubsite is a content-managed website engine built with Go, Echo
// and templ. It serves a tree of typed pages (home, blog, tag index,
// portfolio, forms) whose bodies are validated block streams, with
// revisions, image assets, embeds and a small admin.
//
// Users provide their own templ components via the ViewFuncs struct, and
// pubsite handles the handler logic, middleware and database operations.
package pubsite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eringen/pubsite/blocks"
	"github.com/eringen/pubsite/embeds"
	"github.com/eringen/pubsite/internal/logger"
	"github.com/eringen/pubsite/richtext"
)

// App is the central pubsite application. It wires together the store,
// cache, block renderers, handlers, middleware and user-provided templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *PageCache
	Views   ViewFuncs
	Catalog *blocks.Catalog
	Codec   *ContentCodec
	Log     zerolog.Logger

	images    ImageStorage
	embeds    blocks.EmbedResolver
	mailer    Mailer
	templates blocks.TemplateSet
	expander  *richtext.Expander
	renderers map[string]*blocks.Renderer

	loginLimiter *RateLimiter
	formLimiter  *RateLimiter
	customRoutes []func(*App)
	staticDir    string
	closers      []func() error
	logSet       bool
	initialized  bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Catalog:   blocks.DefaultCatalog(),
		templates: blocks.DefaultTemplates(),
		staticDir: "public",
	}
	for _, opt := range opts {
		opt(a)
	}
	if !a.logSet {
		a.Log = logger.New(cfg.LogLevel, cfg.IsProduction())
	}
	a.Echo.HideBanner = true
	return a
}

// Init opens the store and builds every collaborator, middleware and route.
// Start calls it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.DatabasePath, a.Log.With().Str("component", "store").Logger())
	if err != nil {
		return fmt.Errorf("pubsite: init store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	a.Cache = NewPageCache(a.Store, a.Config.PageCacheTTL)
	a.Codec = NewContentCodec(a.Catalog, a.Config.Content.Mode())

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.formLimiter = NewRateLimiter(10, time.Minute)
	a.closers = append(a.closers, stopFunc(a.loginLimiter), stopFunc(a.formLimiter))

	if a.images == nil {
		if err := a.initImageStorage(ctx); err != nil {
			return err
		}
	}
	if a.embeds == nil {
		if err := a.initEmbeds(ctx); err != nil {
			return err
		}
	}
	if a.mailer == nil {
		if a.Config.SMTP.Host != "" {
			a.mailer = NewSMTPMailer(a.Config.SMTP)
		} else {
			a.mailer = ConsoleMailer{Log: a.Log.With().Str("component", "mail").Logger()}
		}
	}

	a.expander = &richtext.Expander{Images: a, Pages: a}
	if err := a.initRenderers(); err != nil {
		return err
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

func stopFunc(l *RateLimiter) func() error {
	return func() error {
		l.Stop()
		return nil
	}
}

func (a *App) initImageStorage(ctx context.Context) error {
	if a.Config.S3.Bucket == "" {
		a.images = NewFSImageStorage(a.Config.MediaDir, "/media/")
		return nil
	}
	s3Store, err := NewS3ImageStorage(ctx, a.Config.S3)
	if err != nil {
		return fmt.Errorf("pubsite: init image storage: %w", err)
	}
	a.images = s3Store
	return nil
}

func (a *App) initEmbeds(ctx context.Context) error {
	providers := embeds.DefaultProviders()
	for _, pc := range a.Config.Embeds.Providers {
		p, err := embeds.NewProvider(pc.Name, pc.Endpoint, pc.Patterns...)
		if err != nil {
			return fmt.Errorf("pubsite: embed provider %s: %w", pc.Name, err)
		}
		providers = append(providers, p)
	}
	finder := embeds.NewOEmbedFinder(
		embeds.WithProviders(providers...),
		embeds.WithRateLimit(a.Config.Embeds.RateLimit, a.Config.Embeds.Burst),
		embeds.WithMaxWidth(a.Config.Embeds.MaxWidth),
		embeds.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	opts := []embeds.Option{
		embeds.WithTTL(a.Config.Embeds.CacheTTL),
		embeds.WithLogger(a.Log.With().Str("component", "embeds").Logger()),
	}
	if a.Config.Redis.URL != "" {
		cache, err := embeds.NewRedisCacheFromURL(ctx, a.Config.Redis.URL)
		if err != nil {
			return fmt.Errorf("pubsite: init embed cache: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		opts = append(opts, embeds.WithCache(cache))
	}
	a.embeds = embeds.NewResolver(finder, opts...)
	return nil
}

func (a *App) initRenderers() error {
	a.renderers = make(map[string]*blocks.Renderer)
	for _, name := range a.Catalog.Policies() {
		reg, err := a.Catalog.Registry(name)
		if err != nil {
			return err
		}
		a.renderers[name] = blocks.NewRenderer(reg,
			blocks.WithTemplates(a.templates),
			blocks.WithImageResolver(a),
			blocks.WithEmbedResolver(a.embeds),
			blocks.WithRichText(a.expander),
			blocks.WithLogger(a.Log.With().Str("component", "render").Str("policy", name).Logger()),
		)
	}
	return nil
}

// Renderer returns the block renderer of a stream policy.
func (a *App) Renderer(policy string) (*blocks.Renderer, error) {
	r, ok := a.renderers[policy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blocks.ErrUnknownPolicy, policy)
	}
	return r, nil
}

// PageURL implements richtext.PageLookup. Only live pages resolve.
func (a *App) PageURL(ctx context.Context, id string) (string, error) {
	p, err := a.Store.GetPage(ctx, id)
	if err != nil {
		return "", err
	}
	if !p.Live {
		return "", ErrNotFound
	}
	return p.URLPath, nil
}

// Start initializes the app and starts the server. It returns when the
// server stops; a Shutdown makes it return nil.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Log.Info().Str("addr", a.Config.Addr).Str("env", a.Config.Environment).Msg("starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(assets)))))
	e.Static("/public", a.staticDir)
	if fsStore, ok := a.images.(*FSImageStorage); ok {
		e.Static("/media", fsStore.Dir())
	}
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/search/", a.handleSearch)

	admin := e.Group("/admin")
	admin.GET("/", a.handleAdmin)
	admin.POST("/login/", a.handleAdminLogin)
	admin.POST("/logout/", handleAdminLogout)

	auth := admin.Group("", a.requireAdmin)
	auth.GET("/pages/new/", a.handleAdminNewPage)
	auth.POST("/pages/new/", a.handleAdminCreatePage)
	auth.GET("/pages/:id/", a.handleAdminEditPage)
	auth.POST("/pages/:id/", a.handleAdminSavePage)
	auth.POST("/pages/:id/unpublish/", a.handleAdminUnpublish)
	auth.POST("/pages/:id/delete/", a.handleAdminDeletePage)
	auth.POST("/revisions/:id/publish/", a.handleAdminPublishRevision)
	auth.GET("/pages/:id/submissions/", a.handleAdminSubmissions)
	auth.GET("/images/", a.handleImageList)
	auth.POST("/images/", a.handleImageUpload)
	auth.POST("/images/:id/delete/", a.handleImageDelete)
	auth.GET("/authors/", a.handleAdminAuthors)
	auth.POST("/authors/", a.handleAdminSaveAuthor)
	auth.POST("/authors/:id/delete/", a.handleAdminDeleteAuthor)
	auth.GET("/settings/", a.handleAdminSettings)
	auth.POST("/settings/navigation/", a.handleAdminSaveNavigation)
	auth.POST("/settings/footer/", a.handleAdminSaveFooter)
	auth.POST("/settings/footer/unpublish/", a.handleAdminUnpublishFooter)

	api := admin.Group("/api", a.requireAdminAPI)
	api.GET("/policies/", a.handleAPIPolicies)
	api.GET("/policies/:name/", a.handleAPIDescribePolicy)
	api.POST("/policies/:name/validate/", a.handleAPIValidate)
	api.POST("/blocks/:policy/:type/validate/", a.handleAPIValidateBlock)

	e.GET("/*", a.handlePage)
	e.POST("/*", a.handleFormSubmit)
}
