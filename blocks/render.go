package blocks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"

	"github.com/eringen/pubsite/richtext"
)

var errNoResolver = errors.New("no resolver configured")

// Rendition is a display-ready image.
type Rendition struct {
	URL    string
	Alt    string
	Width  int
	Height int
}

// ImageResolver turns an ImageRef into a Rendition.
type ImageResolver interface {
	ResolveImage(ctx context.Context, ref ImageRef) (Rendition, error)
}

// EmbedHTML is the provider markup for an embed URL.
type EmbedHTML struct {
	HTML         string
	Title        string
	ProviderName string
	Width        int
	Height       int
}

// EmbedResolver turns an embed URL into provider markup.
type EmbedResolver interface {
	ResolveEmbed(ctx context.Context, url string) (EmbedHTML, error)
}

// RenderContext is what a Template receives for one block.
type RenderContext struct {
	Block Block
	Value Value

	// Image is set for CaptionedImage blocks.
	Image *Rendition
	// Images holds every card image that resolved.
	Images map[ImageRef]Rendition
	// Embed is set for Embed blocks.
	Embed *EmbedHTML
	// RichText expands stored rich text into display markup.
	RichText func(string) templ.Component
}

// Template renders one block.
type Template func(RenderContext) templ.Component

// TemplateSet maps template identifiers to templates.
type TemplateSet map[string]Template

// Renderer dispatches blocks to templates. It never mutates the streams it renders.
type Renderer struct {
	reg       *Registry
	templates TemplateSet
	images    ImageResolver
	embeds    EmbedResolver
	expander  *richtext.Expander
	log       zerolog.Logger
}

type RendererOption func(*Renderer)

func WithTemplates(ts TemplateSet) RendererOption {
	return func(r *Renderer) { r.templates = ts }
}

func WithImageResolver(ir ImageResolver) RendererOption {
	return func(r *Renderer) { r.images = ir }
}

func WithEmbedResolver(er EmbedResolver) RendererOption {
	return func(r *Renderer) { r.embeds = er }
}

// WithRichText sets the expander used for rich text inside blocks.
func WithRichText(e *richtext.Expander) RendererOption {
	return func(r *Renderer) { r.expander = e }
}

func WithLogger(l zerolog.Logger) RendererOption {
	return func(r *Renderer) { r.log = l }
}

// NewRenderer builds a renderer for streams of reg, using DefaultTemplates
// unless WithTemplates is given.
func NewRenderer(reg *Registry, opts ...RendererOption) *Renderer {
	r := &Renderer{
		reg:       reg,
		templates: DefaultTemplates(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderStream renders every block in order.
func (r *Renderer) RenderStream(s Stream) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for i := range s {
			if err := r.RenderBlock(s[i]).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// RenderBlock renders a single block. Asset failures are logged and replaced by
// a placeholder; opaque blocks and blocks without a template produce no output.
func (r *Renderer) RenderBlock(b Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, ok := b.Value.(Opaque); ok {
			return nil
		}
		v, ok := r.reg.Lookup(b.Type)
		if !ok {
			return nil
		}
		tmpl, ok := r.templates[v.Template]
		if !ok {
			return nil
		}

		rc := RenderContext{Block: b, Value: b.Value, RichText: r.richText(ctx)}
		switch val := b.Value.(type) {
		case CaptionedImage:
			rend, err := r.resolveImage(ctx, val.Image)
			if err != nil {
				r.logAssetError(b, err)
				return writePlaceholder(w, b.Type, "Image unavailable")
			}
			rc.Image = &rend
		case Embed:
			emb, err := r.resolveEmbed(ctx, val.URL)
			if err != nil {
				r.logAssetError(b, err)
				return writePlaceholder(w, b.Type, "Embedded content unavailable")
			}
			rc.Embed = &emb
		case Card:
			rc.Images = make(map[ImageRef]Rendition, len(val.Cards))
			for _, c := range val.Cards {
				rend, err := r.resolveImage(ctx, c.Image)
				if err != nil {
					r.logAssetError(b, err)
					continue
				}
				rc.Images[c.Image] = rend
			}
		}

		var buf bytes.Buffer
		if err := tmpl(rc).Render(ctx, &buf); err != nil {
			return fmt.Errorf("render %s block %s: %w", b.Type, b.ID, err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func (r *Renderer) resolveImage(ctx context.Context, ref ImageRef) (Rendition, error) {
	if r.images == nil {
		return Rendition{}, &AssetResolutionError{Kind: "image", Ref: ref.String(), Err: errNoResolver}
	}
	rend, err := r.images.ResolveImage(ctx, ref)
	if err != nil {
		return Rendition{}, &AssetResolutionError{Kind: "image", Ref: ref.String(), Err: err}
	}
	return rend, nil
}

func (r *Renderer) resolveEmbed(ctx context.Context, url string) (EmbedHTML, error) {
	if r.embeds == nil {
		return EmbedHTML{}, &AssetResolutionError{Kind: "embed", Ref: url, Err: errNoResolver}
	}
	emb, err := r.embeds.ResolveEmbed(ctx, url)
	if err != nil {
		return EmbedHTML{}, &AssetResolutionError{Kind: "embed", Ref: url, Err: err}
	}
	return emb, nil
}

func (r *Renderer) richText(ctx context.Context) func(string) templ.Component {
	return func(s string) templ.Component {
		return richtext.Component(r.expander.Expand(ctx, s))
	}
}

func (r *Renderer) logAssetError(b Block, err error) {
	r.log.Warn().Err(err).Str("block_id", b.ID).Str("block_type", b.Type).Msg("asset resolution failed")
}

func writePlaceholder(w io.Writer, tag, msg string) error {
	_, err := fmt.Fprintf(w, `<div class="block-placeholder" data-block-type="%s">%s</div>`,
		html.EscapeString(tag), html.EscapeString(msg))
	return err
}
