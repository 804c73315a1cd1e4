package pubsite

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/blocks"
	"github.com/eringen/pubsite/richtext"
)

// site builds the per-request view context. Settings failures are logged
// and render as empty values.
func (a *App) site(c echo.Context) Site {
	ctx := c.Request().Context()
	s := Site{
		Config:    a.Config,
		CSRFToken: CsrfToken(c),
		Path:      c.Request().URL.Path,
		IsAdmin:   IsAdmin(c),
		Meta: PageMeta{
			Title:       a.Config.Name,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL, c.Request().URL.Path),
			OGType:      "website",
			JSONLD:      WebsiteJsonLD(a.Config),
		},
	}
	if a.Store == nil {
		return s
	}
	nav, err := a.Store.NavigationSettings(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("load navigation settings")
	}
	s.Navigation = nav
	if footer, err := a.Store.FooterText(ctx); err != nil {
		a.Log.Error().Err(err).Msg("load footer")
	} else if footer.Live {
		s.Footer = a.expander.Expand(ctx, footer.Body)
	}
	s.Menu = a.menu(ctx, s.Path)
	return s
}

// menu links the live children of the root page.
func (a *App) menu(ctx context.Context, current string) []PageLink {
	root, err := a.Cache.LivePage(ctx, "/")
	if err != nil {
		return nil
	}
	children, err := a.Cache.LiveChildren(ctx, root.ID, "")
	if err != nil {
		a.Log.Error().Err(err).Msg("load menu")
		return nil
	}
	links := []PageLink{{Title: root.Title, URL: "/", Active: current == "/"}}
	for _, p := range children {
		links = append(links, PageLink{Title: p.Title, URL: p.URLPath, Active: current == p.URLPath})
	}
	return links
}

func (a *App) pageSite(c echo.Context, p Page, description string) Site {
	s := a.site(c)
	s.Meta.Title = p.Title + " | " + a.Config.Name
	if p.URLPath == "/" {
		s.Meta.Title = a.Config.Name
	}
	if description != "" {
		s.Meta.Description = richtext.Truncate(richtext.PlainText(description), 160)
	}
	s.Meta.URL = PageURL(a.Config, p)
	return s
}

// handlePage serves the live page at the request path.
func (a *App) handlePage(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := a.Cache.LivePage(ctx, c.Request().URL.Path)
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}

	switch page.Type {
	case HomePageType:
		return a.serveHome(c, page)
	case BlogIndexPageType:
		return a.serveBlogIndex(c, page)
	case BlogPageType:
		return a.serveBlogPost(c, page)
	case BlogTagIndexPageType:
		return a.serveTagIndex(c, page)
	case PortfolioPageType:
		return a.servePortfolio(c, page)
	case FormPageType:
		fp, err := a.Codec.FormPage(page)
		if err != nil {
			return err
		}
		return a.renderForm(c, http.StatusOK, fp, nil, nil)
	}
	return echo.ErrNotFound
}

func (a *App) serveHome(c echo.Context, page Page) error {
	hp, err := a.Codec.HomePage(page)
	if err != nil {
		return err
	}
	r, err := a.Renderer(blocks.BasePolicy)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	return Render(c, a.Views.Home(HomeView{
		Site:  a.pageSite(c, page, hp.Intro),
		Page:  hp,
		Intro: a.expander.Expand(ctx, hp.Intro),
		Body:  r.RenderStream(hp.Body),
	}))
}

func (a *App) servePortfolio(c echo.Context, page Page) error {
	pp, err := a.Codec.PortfolioPage(page)
	if err != nil {
		return err
	}
	r, err := a.Renderer(blocks.PortfolioPolicy)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Portfolio(PortfolioView{
		Site: a.pageSite(c, page, ""),
		Page: pp,
		Body: r.RenderStream(pp.Body),
	}))
}

func (a *App) serveBlogIndex(c echo.Context, page Page) error {
	ctx := c.Request().Context()
	bi, err := a.Codec.BlogIndexPage(page)
	if err != nil {
		return err
	}
	children, err := a.Cache.LiveChildren(ctx, page.ID, BlogPageType)
	if err != nil {
		return err
	}
	posts, err := a.summaries(ctx, children)
	if err != nil {
		return err
	}
	return Render(c, a.Views.BlogIndex(BlogIndexView{
		Site:  a.pageSite(c, page, bi.Intro),
		Page:  bi,
		Intro: a.expander.Expand(ctx, bi.Intro),
		Posts: posts,
	}))
}

func (a *App) serveBlogPost(c echo.Context, page Page) error {
	ctx := c.Request().Context()
	post, err := a.Codec.BlogPage(page)
	if err != nil {
		return err
	}
	post.Authors, err = a.Store.AuthorsByIDs(ctx, post.AuthorIDs)
	if err != nil {
		return err
	}

	view := BlogPostView{
		Post: post,
		Body: a.expander.Expand(ctx, post.Body),
	}
	for _, au := range post.Authors {
		view.Authors = append(view.Authors, AuthorView{Author: au, Portrait: a.imageRendition(ctx, au.ImageID)})
	}
	for _, g := range post.GalleryImages {
		if r := a.imageRendition(ctx, g.ImageID); r != nil {
			view.Gallery = append(view.Gallery, GalleryView{Image: *r, Caption: g.Caption})
		}
	}

	tagIndex := a.tagIndexPath(ctx)
	for _, t := range post.Tags {
		link := PageLink{Title: t}
		if tagIndex != "" {
			link.URL = TagURL(tagIndex, t)
		}
		view.Tags = append(view.Tags, link)
	}

	if len(post.Tags) > 0 {
		livePosts, err := a.Cache.LivePages(ctx, BlogPageType)
		if err != nil {
			return err
		}
		var decoded []BlogPage
		for _, p := range livePosts {
			bp, err := a.Codec.BlogPage(p)
			if err != nil {
				a.Log.Warn().Err(err).Str("page_id", p.ID).Msg("skip related post")
				continue
			}
			decoded = append(decoded, bp)
		}
		for _, rp := range FilterRelatedPosts(post, decoded) {
			view.Related = append(view.Related, PostSummary{Post: rp, URL: rp.URLPath})
		}
	}

	view.Site = a.pageSite(c, page, post.Intro)
	view.Site.Meta.OGType = "article"
	view.Site.Meta.JSONLD = BlogPostingJsonLD(post, a.Config)
	return Render(c, a.Views.BlogPost(view))
}

func (a *App) serveTagIndex(c echo.Context, page Page) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("tag")

	var matched []Page
	if tag != "" {
		var err error
		matched, err = a.Cache.ByTag(ctx, tag)
		if err != nil {
			return err
		}
	}
	posts, err := a.summaries(ctx, matched)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	links := make([]PageLink, 0, len(tags))
	for _, t := range tags {
		links = append(links, PageLink{Title: t, URL: TagURL(page.URLPath, t), Active: t == tag})
	}
	site := a.pageSite(c, page, "")
	if tag != "" {
		site.Meta.Title = tag + " | " + a.Config.Name
	}
	return Render(c, a.Views.BlogTagIndex(TagIndexView{
		Site:  site,
		Page:  BlogTagIndexPage{Page: page},
		Tag:   tag,
		Tags:  links,
		Posts: posts,
	}))
}

// tagIndexPath is the URL path of the first live tag index page, if any.
func (a *App) tagIndexPath(ctx context.Context) string {
	pages, err := a.Cache.LivePages(ctx, BlogTagIndexPageType)
	if err != nil || len(pages) == 0 {
		return ""
	}
	return pages[len(pages)-1].URLPath
}

func (a *App) summaries(ctx context.Context, pages []Page) ([]PostSummary, error) {
	out := make([]PostSummary, 0, len(pages))
	for _, p := range pages {
		bp, err := a.Codec.BlogPage(p)
		if err != nil {
			return nil, err
		}
		s := PostSummary{Post: bp, URL: p.URLPath}
		if img, ok := bp.MainImage(); ok {
			s.Image = a.imageRendition(ctx, img.ImageID)
		}
		out = append(out, s)
	}
	return out, nil
}

func (a *App) handleSearch(c echo.Context) error {
	q := c.QueryParam("q")
	pages, err := a.Store.SearchPages(c.Request().Context(), q)
	if err != nil {
		return err
	}
	results := make([]SearchResult, 0, len(pages))
	for _, p := range pages {
		r := SearchResult{Page: p, URL: p.URLPath}
		if p.Type == BlogPageType {
			if bp, err := a.Codec.BlogPage(p); err == nil {
				r.Snippet = bp.Intro
			}
		}
		results = append(results, r)
	}
	site := a.site(c)
	site.Meta.Title = "Search | " + a.Config.Name
	return Render(c, a.Views.Search(SearchView{Site: site, Query: q, Results: results}))
}

func (a *App) handleSitemap(c echo.Context) error {
	pages, err := a.Cache.LivePages(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, pages)
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	pages, err := a.Cache.LivePages(ctx, BlogPageType)
	if err != nil {
		return err
	}
	posts := make([]BlogPage, 0, len(pages))
	for _, p := range pages {
		bp, err := a.Codec.BlogPage(p)
		if err != nil {
			a.Log.Warn().Err(err).Str("page_id", p.ID).Msg("skip feed item")
			continue
		}
		posts = append(posts, bp)
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "robots.txt"))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if (ok && he.Code == http.StatusNotFound) || errors.Is(err, ErrNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site(c)))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		ev := a.Log.Error().Err(err).Str("uri", c.Request().RequestURI)
		var malformed *blocks.MalformedStreamError
		var unknown *blocks.UnknownVariantError
		if errors.As(err, &malformed) || errors.As(err, &unknown) {
			ev = ev.Str("kind", "stored_content")
		}
		ev.Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.site(c)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// redirectWithMessage sends the browser back to target with a flash message.
func redirectWithMessage(c echo.Context, target, msg string) error {
	return c.Redirect(http.StatusSeeOther, target+"?msg="+url.QueryEscape(msg))
}
