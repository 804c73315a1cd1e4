package views

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite"
	"github.com/eringen/pubsite/blocks"
)

// writer is an error-latching writer: after the first failure every call is
// a no-op and err holds the cause.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) text(s string) { w.raw(html.EscapeString(s)) }

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// component adapts a body writer to templ.
func component(fn func(ctx context.Context, w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		fn(ctx, w)
		return w.err
	})
}

func esc(s string) string { return html.EscapeString(s) }

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}

// FormatDate renders a YYYY-MM-DD date for display, leaving other input as is.
func FormatDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("January 2, 2006")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func csrfInput(w *writer, token string) {
	w.printf(`<input type="hidden" name="_csrf" value="%s"/>`, esc(token))
}

func image(w *writer, r *blocks.Rendition, class string) {
	if r == nil {
		return
	}
	w.printf(`<img class="%s" src="%s" alt="%s"`, class, esc(r.URL), esc(r.Alt))
	if r.Width > 0 && r.Height > 0 {
		w.printf(` width="%d" height="%d"`, r.Width, r.Height)
	}
	w.raw(` loading="lazy" decoding="async"/>`)
}

func tagList(w *writer, tags []pubsite.PageLink) {
	if len(tags) == 0 {
		return
	}
	w.raw(`<ul class="tags">`)
	for _, t := range tags {
		if t.URL == "" {
			w.printf(`<li><span class="%s">%s</span></li>`, TagClass(t.Active), esc(t.Title))
			continue
		}
		w.printf(`<li><a class="%s" href="%s">%s</a></li>`, TagClass(t.Active), esc(t.URL), esc(t.Title))
	}
	w.raw(`</ul>`)
}

func postList(w *writer, posts []pubsite.PostSummary) {
	w.raw(`<ul class="post-list">`)
	for _, p := range posts {
		w.raw(`<li class="post-summary">`)
		image(w, p.Image, "post-thumb")
		w.printf(`<h2><a href="%s">%s</a></h2>`, esc(p.URL), esc(p.Post.Title))
		if p.Post.Date != "" {
			w.printf(`<time datetime="%s">%s</time>`, esc(p.Post.Date), esc(FormatDate(p.Post.Date)))
		}
		if p.Post.Intro != "" {
			w.printf(`<p>%s</p>`, esc(p.Post.Intro))
		}
		w.raw(`</li>`)
	}
	w.raw(`</ul>`)
}

func statusLabel(live, changed bool) string {
	switch {
	case live && changed:
		return "live + draft"
	case live:
		return "live"
	default:
		return "draft"
	}
}

func depth(urlPath string) int {
	return strings.Count(strings.Trim(urlPath, "/"), "/") + boolInt(urlPath != "/")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
