// Package richtext turns stored rich text markup into safe HTML for templates.
//
// Stored rich text may reference images and pages by id
// (<embed embedtype="image" id="3" alt="..."/>, <a linktype="page" id="...">).
// Expand rewrites those references into real markup and drops unsafe URLs.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	reEmbed   = regexp.MustCompile(`(?i)<embed\b([^>]*?)/?>`)
	reAnchor  = regexp.MustCompile(`(?i)<a\b([^>]*)>`)
	reAttr    = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*"([^"]*)"`)
	reScript  = regexp.MustCompile(`(?is)<(script|style|iframe)\b.*?</(script|style|iframe)\s*>`)
	reStray   = regexp.MustCompile(`(?i)</?(script|style|iframe)\b[^>]*(>|$)`)
	reOpenTag = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	// Quoted values are matched first so handler-like text inside them is kept.
	reHandler = regexp.MustCompile(`(?i)"[^"]*"|'[^']*'|[\s/]+on\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	reTag     = regexp.MustCompile(`<[^>]*>`)
	reSpace   = regexp.MustCompile(`\s+`)
)

// ImageLookup resolves an embedded image id to a URL.
type ImageLookup interface {
	ImageURL(ctx context.Context, id int64) (string, error)
}

// PageLookup resolves an internal page link to its URL path.
type PageLookup interface {
	PageURL(ctx context.Context, id string) (string, error)
}

// Expander rewrites stored rich text for display. Nil lookups drop the
// references they would have resolved.
type Expander struct {
	Images ImageLookup
	Pages  PageLookup
}

// Expand returns display HTML for src. Failed lookups degrade to empty output
// for images and plain anchors for links; they never fail the render.
func (e *Expander) Expand(ctx context.Context, src string) string {
	if src == "" {
		return ""
	}
	out := reScript.ReplaceAllString(src, "")
	out = reStray.ReplaceAllString(out, "")
	out = reOpenTag.ReplaceAllStringFunc(out, stripHandlers)
	out = reEmbed.ReplaceAllStringFunc(out, func(m string) string {
		attrs := parseAttrs(reEmbed.FindStringSubmatch(m)[1])
		if attrs["embedtype"] != "image" || e == nil || e.Images == nil {
			return ""
		}
		id, err := strconv.ParseInt(attrs["id"], 10, 64)
		if err != nil {
			return ""
		}
		u, err := e.Images.ImageURL(ctx, id)
		if err != nil || u == "" {
			return ""
		}
		class := "richtext-image"
		if f := attrs["format"]; f != "" {
			class += " " + html.EscapeString(f)
		}
		return `<img class="` + class + `" alt="` + html.EscapeString(attrs["alt"]) + `" src="` + html.EscapeString(u) + `" loading="lazy" decoding="async"/>`
	})
	out = reAnchor.ReplaceAllStringFunc(out, func(m string) string {
		attrs := parseAttrs(reAnchor.FindStringSubmatch(m)[1])
		var href string
		if attrs["linktype"] == "page" {
			if e != nil && e.Pages != nil {
				if u, err := e.Pages.PageURL(ctx, attrs["id"]); err == nil {
					href = SafeURL(u)
				}
			}
		} else {
			href = SafeURL(attrs["href"])
		}
		if href == "" {
			return "<a>"
		}
		if strings.HasPrefix(href, "http") {
			return `<a href="` + href + `" rel="noopener noreferrer">`
		}
		return `<a href="` + href + `">`
	})
	return out
}

func stripHandlers(tag string) string {
	return reHandler.ReplaceAllStringFunc(tag, func(m string) string {
		if m[0] == '"' || m[0] == '\'' {
			return m
		}
		return ""
	})
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range reAttr.FindAllStringSubmatch(s, -1) {
		attrs[strings.ToLower(m[1])] = html.UnescapeString(m[2])
	}
	return attrs
}

// Component renders already expanded HTML.
func Component(markup string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		if strings.HasPrefix(val, "//") {
			return ""
		}
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}

// PlainText strips markup, for feeds, meta descriptions and search excerpts.
func PlainText(s string) string {
	s = reScript.ReplaceAllString(s, "")
	s = reTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// Truncate shortens plain text to at most n runes, cutting at a word boundary.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
	),
)

// FromMarkdown converts authored markdown into stored rich text. Raw HTML in
// the source is omitted.
func FromMarkdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
