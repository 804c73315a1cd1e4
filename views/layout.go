package views

import (
	"context"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite"
)

func head(w *writer, s pubsite.Site) {
	m := s.Meta
	w.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8"/>`)
	w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
	w.printf(`<title>%s</title>`, esc(m.Title))
	if m.Description != "" {
		w.printf(`<meta name="description" content="%s"/>`, esc(m.Description))
		w.printf(`<meta property="og:description" content="%s"/>`, esc(m.Description))
	}
	w.printf(`<meta property="og:title" content="%s"/>`, esc(m.Title))
	w.printf(`<meta property="og:type" content="%s"/>`, esc(m.OGType))
	if m.URL != "" {
		w.printf(`<link rel="canonical" href="%s"/><meta property="og:url" content="%s"/>`, esc(m.URL), esc(m.URL))
	}
	w.printf(`<meta property="og:site_name" content="%s"/>`, esc(s.Config.Name))
	w.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml"/>`)
	w.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"/>`)
	w.raw(`<link rel="stylesheet" href="/static/site.css"/>`)
	if m.JSONLD != "" {
		// JSON-LD comes from json.Marshal, which escapes <, > and &.
		w.printf(`<script type="application/ld+json">%s</script>`, m.JSONLD)
	}
	w.raw(`</head>`)
}

// layout wraps a public page body in the site chrome.
func layout(s pubsite.Site, body func(ctx context.Context, w *writer)) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		head(w, s)
		w.raw(`<body><header class="site-header">`)
		w.printf(`<a class="site-name" href="/">%s</a>`, esc(s.Config.Name))
		if len(s.Menu) > 0 {
			w.raw(`<nav class="menu"><ul>`)
			for _, l := range s.Menu {
				cls := ""
				if l.Active {
					cls = ` class="active" aria-current="page"`
				}
				w.printf(`<li><a href="%s"%s>%s</a></li>`, esc(l.URL), cls, esc(l.Title))
			}
			w.raw(`</ul></nav>`)
		}
		w.raw(`<form class="search" action="/search/" method="get"><input type="search" name="q" placeholder="Search"/></form>`)
		w.raw(`</header><main>`)
		body(ctx, w)
		w.raw(`</main><footer class="site-footer">`)
		if s.Footer != "" {
			w.printf(`<div class="footer-text">%s</div>`, s.Footer)
		}
		if s.Navigation.InstagramURL != "" {
			w.printf(`<a class="social" href="%s" rel="me noopener">Instagram</a>`, esc(s.Navigation.InstagramURL))
		}
		if s.IsAdmin {
			w.raw(`<a class="admin-link" href="/admin/">Admin</a>`)
		}
		w.raw(`</footer></body></html>`)
	})
}

var adminNav = []pubsite.PageLink{
	{Title: "Pages", URL: "/admin/"},
	{Title: "Images", URL: "/admin/images/"},
	{Title: "Authors", URL: "/admin/authors/"},
	{Title: "Settings", URL: "/admin/settings/"},
}

// adminLayout is the chrome for admin screens.
func adminLayout(s pubsite.Site, title string, body func(ctx context.Context, w *writer)) templ.Component {
	s.Meta.Title = title + " | " + s.Config.Name + " admin"
	s.Meta.Description = ""
	s.Meta.JSONLD = ""
	return component(func(ctx context.Context, w *writer) {
		head(w, s)
		w.raw(`<body class="admin"><header class="site-header">`)
		w.printf(`<a class="site-name" href="/">%s</a>`, esc(s.Config.Name))
		if s.IsAdmin {
			w.raw(`<nav class="menu"><ul>`)
			for _, l := range adminNav {
				w.printf(`<li><a href="%s">%s</a></li>`, l.URL, esc(l.Title))
			}
			w.raw(`</ul></nav><form method="post" action="/admin/logout/">`)
			csrfInput(w, s.CSRFToken)
			w.raw(`<button type="submit">Log out</button></form>`)
		}
		w.printf(`</header><main><h1>%s</h1>`, esc(title))
		body(ctx, w)
		w.raw(`</main></body></html>`)
	})
}

func message(w *writer, msg, errMsg string) {
	if msg != "" {
		w.printf(`<p class="message">%s</p>`, esc(msg))
	}
	if errMsg != "" {
		w.printf(`<p class="error">%s</p>`, esc(errMsg))
	}
}
