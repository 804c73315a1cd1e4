package views

import (
	"context"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite"
)

func Home(v pubsite.HomeView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.printf(`<article class="home"><h1>%s</h1>`, esc(v.Page.Title))
		if v.Intro != "" {
			w.printf(`<div class="intro">%s</div>`, v.Intro)
		}
		w.raw(`<div class="stream">`)
		w.component(ctx, v.Body)
		w.raw(`</div></article>`)
	})
}

func Portfolio(v pubsite.PortfolioView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.printf(`<article class="portfolio"><h1>%s</h1><div class="stream">`, esc(v.Page.Title))
		w.component(ctx, v.Body)
		w.raw(`</div></article>`)
	})
}

func BlogIndex(v pubsite.BlogIndexView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.printf(`<section class="blog-index"><h1>%s</h1>`, esc(v.Page.Title))
		if v.Intro != "" {
			w.printf(`<div class="intro">%s</div>`, v.Intro)
		}
		if len(v.Posts) == 0 {
			w.raw(`<p class="empty">No posts yet.</p>`)
		} else {
			postList(w, v.Posts)
		}
		w.raw(`</section>`)
	})
}

func BlogPost(v pubsite.BlogPostView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		p := v.Post
		w.printf(`<article class="post"><h1>%s</h1>`, esc(p.Title))
		if p.Date != "" {
			w.printf(`<time datetime="%s">%s</time>`, esc(p.Date), esc(FormatDate(p.Date)))
		}
		if len(v.Authors) > 0 {
			w.raw(`<ul class="authors">`)
			for _, a := range v.Authors {
				w.raw(`<li>`)
				image(w, a.Portrait, "author-portrait")
				w.printf(`<span>%s</span></li>`, esc(a.Author.Name))
			}
			w.raw(`</ul>`)
		}
		w.printf(`<p class="intro">%s</p>`, esc(p.Intro))
		w.printf(`<div class="body">%s</div>`, v.Body)
		if len(v.Gallery) > 0 {
			w.raw(`<div class="gallery">`)
			for _, g := range v.Gallery {
				w.raw(`<figure>`)
				img := g.Image
				image(w, &img, "gallery-image")
				if g.Caption != "" {
					w.printf(`<figcaption>%s</figcaption>`, esc(g.Caption))
				}
				w.raw(`</figure>`)
			}
			w.raw(`</div>`)
		}
		tagList(w, v.Tags)
		w.raw(`</article>`)
		if len(v.Related) > 0 {
			w.raw(`<aside class="related"><h2>Related posts</h2>`)
			postList(w, v.Related)
			w.raw(`</aside>`)
		}
	})
}

func BlogTagIndex(v pubsite.TagIndexView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.raw(`<section class="tag-index">`)
		if v.Tag != "" {
			w.printf(`<h1>Posts tagged &ldquo;%s&rdquo;</h1>`, esc(v.Tag))
		} else {
			w.printf(`<h1>%s</h1>`, esc(v.Page.Title))
		}
		tagList(w, v.Tags)
		switch {
		case v.Tag == "":
			w.raw(`<p class="empty">Pick a tag to see its posts.</p>`)
		case len(v.Posts) == 0:
			w.raw(`<p class="empty">No posts with this tag.</p>`)
		default:
			postList(w, v.Posts)
		}
		w.raw(`</section>`)
	})
}

func Search(v pubsite.SearchView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.raw(`<section class="search-results"><h1>Search</h1>`)
		w.printf(`<form action="/search/" method="get"><input type="search" name="q" value="%s"/><button type="submit">Search</button></form>`, esc(v.Query))
		if v.Query != "" && len(v.Results) == 0 {
			w.raw(`<p class="empty">No results.</p>`)
		}
		w.raw(`<ul>`)
		for _, r := range v.Results {
			w.printf(`<li><a href="%s">%s</a>`, esc(r.URL), esc(r.Page.Title))
			if r.Snippet != "" {
				w.printf(`<p>%s</p>`, esc(r.Snippet))
			}
			w.raw(`</li>`)
		}
		w.raw(`</ul></section>`)
	})
}

func NotFound(s pubsite.Site) templ.Component {
	s.Meta.Title = "Page not found | " + s.Config.Name
	s.Meta.JSONLD = ""
	return layout(s, func(ctx context.Context, w *writer) {
		w.raw(`<section class="error-page"><h1>Page not found</h1><p>Sorry, this page could not be found.</p><p><a href="/">Go home</a></p></section>`)
	})
}

func ServerError(s pubsite.Site) templ.Component {
	s.Meta.Title = "Server error | " + s.Config.Name
	s.Meta.JSONLD = ""
	return layout(s, func(ctx context.Context, w *writer) {
		w.raw(`<section class="error-page"><h1>Something went wrong</h1><p>Please try again later.</p></section>`)
	})
}
