package blocks

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite/richtext"
)

// DefaultTemplates returns the built-in presentation of every built-in variant.
func DefaultTemplates() TemplateSet {
	return TemplateSet{
		"blocks/heading":   headingTemplate,
		"blocks/paragraph": paragraphTemplate,
		"blocks/image":     imageTemplate,
		"blocks/embed":     embedTemplate,
		"blocks/card":      cardTemplate,
	}
}

func headingTemplate(rc RenderContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h, ok := rc.Value.(Heading)
		if !ok {
			return nil
		}
		el := h.Size.Element()
		_, err := fmt.Fprintf(w, `<%s class="block-heading">%s</%s>`, el, html.EscapeString(h.Text), el)
		return err
	})
}

func paragraphTemplate(rc RenderContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p, ok := rc.Value.(Paragraph)
		if !ok {
			return nil
		}
		if _, err := io.WriteString(w, `<div class="block-paragraph">`); err != nil {
			return err
		}
		if err := rc.richText(p.HTML).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func imageTemplate(rc RenderContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		img, ok := rc.Value.(CaptionedImage)
		if !ok || rc.Image == nil {
			return nil
		}
		alt := rc.Image.Alt
		if img.Caption != "" {
			alt = img.Caption
		}
		w := &htmlWriter{w: out}
		w.printf(`<figure class="block-image"><img src="%s" alt="%s"`, html.EscapeString(rc.Image.URL), html.EscapeString(alt))
		if rc.Image.Width > 0 && rc.Image.Height > 0 {
			w.printf(` width="%d" height="%d"`, rc.Image.Width, rc.Image.Height)
		}
		w.raw(` loading="lazy" decoding="async"/>`)
		if img.Caption != "" || img.Attribution != "" {
			w.raw(`<figcaption>`)
			if img.Caption != "" {
				w.raw(html.EscapeString(img.Caption))
			}
			if img.Attribution != "" {
				w.printf(` <span class="attribution">%s</span>`, html.EscapeString(img.Attribution))
			}
			w.raw(`</figcaption>`)
		}
		w.raw(`</figure>`)
		return w.err
	})
}

func embedTemplate(rc RenderContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if rc.Embed == nil {
			return nil
		}
		_, err := fmt.Fprintf(w, `<div class="block-embed">%s</div>`, rc.Embed.HTML)
		return err
	})
}

func cardTemplate(rc RenderContext) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		card, ok := rc.Value.(Card)
		if !ok {
			return nil
		}
		w := &htmlWriter{w: out}
		w.raw(`<section class="block-card">`)
		if card.Heading != "" {
			w.printf(`<h2>%s</h2>`, html.EscapeString(card.Heading))
		}
		if card.Text != "" {
			w.component(ctx, rc.richText(card.Text))
		}
		w.raw(`<div class="cards">`)
		for _, c := range card.Cards {
			w.raw(`<div class="card">`)
			if rend, ok := rc.Images[c.Image]; ok {
				w.printf(`<img src="%s" alt="%s" loading="lazy" decoding="async"/>`, html.EscapeString(rend.URL), html.EscapeString(c.Title))
			} else if w.err == nil {
				w.err = writePlaceholder(out, CardTag, "Image unavailable")
			}
			w.printf(`<h3>%s</h3>`, html.EscapeString(c.Title))
			if c.Text != "" {
				w.component(ctx, rc.richText(c.Text))
			}
			if href := richtext.SafeURL(c.Link); href != "" {
				w.printf(`<a class="card-link" href="%s">Read more</a>`, href)
			}
			w.raw(`</div>`)
		}
		w.raw(`</div></section>`)
		return w.err
	})
}

// htmlWriter keeps the first write error; later writes are skipped.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (w *htmlWriter) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *htmlWriter) printf(format string, args ...any) {
	if w.err == nil {
		_, w.err = fmt.Fprintf(w.w, format, args...)
	}
}

func (w *htmlWriter) component(ctx context.Context, c templ.Component) {
	if w.err == nil {
		w.err = c.Render(ctx, w.w)
	}
}

// richText falls back to unexpanded output when a template is called outside a Renderer.
func (rc RenderContext) richText(s string) templ.Component {
	if rc.RichText != nil {
		return rc.RichText(s)
	}
	return richtext.Component((*richtext.Expander)(nil).Expand(context.Background(), s))
}
