package blocks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages map[int64]Rendition

func (f fakeImages) ResolveImage(_ context.Context, ref ImageRef) (Rendition, error) {
	r, ok := f[ref.ID]
	if !ok {
		return Rendition{}, errors.New("image not found")
	}
	return r, nil
}

type fakeEmbeds struct {
	calls int
	fail  bool
}

func (f *fakeEmbeds) ResolveEmbed(_ context.Context, url string) (EmbedHTML, error) {
	f.calls++
	if f.fail {
		return EmbedHTML{}, errors.New("provider down")
	}
	return EmbedHTML{HTML: `<iframe src="` + url + `"></iframe>`, ProviderName: "YouTube"}, nil
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestRenderEndToEnd(t *testing.T) {
	reg := baseRegistry(t)
	in := `[
		{"type":"heading_block","value":{"heading_text":"Welcome","size":"h3"},"id":"a"},
		{"type":"paragraph_block","value":"<p>Hello <a href=\"javascript:x()\">there</a></p>","id":"b"},
		{"type":"image_block","value":{"image":5,"caption":"Dunes","attribution":"Ana"},"id":"c"}
	]`
	s, err := Parse([]byte(in), reg, Strict)
	require.NoError(t, err)

	r := NewRenderer(reg, WithImageResolver(fakeImages{5: {URL: "/media/images/dunes.jpg", Width: 800, Height: 600}}))
	out := render(t, r.RenderStream(s))

	h := strings.Index(out, `<h3 class="block-heading">Welcome</h3>`)
	p := strings.Index(out, `<div class="block-paragraph"><p>Hello <a>there</a></p></div>`)
	i := strings.Index(out, `<img src="/media/images/dunes.jpg" alt="Dunes" width="800" height="600"`)
	require.True(t, h >= 0, out)
	require.True(t, p > h, out)
	require.True(t, i > p, out)
	assert.Contains(t, out, `<figcaption>Dunes <span class="attribution">Ana</span></figcaption>`)
}

func TestRenderDefaultHeadingSize(t *testing.T) {
	r := NewRenderer(baseRegistry(t))
	out := render(t, r.RenderBlock(Block{ID: "x", Type: HeadingTag, Value: Heading{Text: "A & B"}}))
	assert.Equal(t, `<h2 class="block-heading">A &amp; B</h2>`, out)
}

func TestRenderDanglingImagePlaceholder(t *testing.T) {
	var logs bytes.Buffer
	r := NewRenderer(baseRegistry(t), WithImageResolver(fakeImages{}), WithLogger(zerolog.New(&logs)))
	s := Stream{
		{ID: "1", Type: HeadingTag, Value: Heading{Text: "Before"}},
		{ID: "2", Type: ImageTag, Value: CaptionedImage{Image: ImageRef{ID: 77}}},
		{ID: "3", Type: HeadingTag, Value: Heading{Text: "After"}},
	}
	out := render(t, r.RenderStream(s))
	assert.Contains(t, out, `<div class="block-placeholder" data-block-type="image_block">Image unavailable</div>`)
	assert.Contains(t, out, "Before")
	assert.Contains(t, out, "After")
	assert.Contains(t, logs.String(), "asset resolution failed")
	assert.Contains(t, logs.String(), "resolve image 77")
}

func TestRenderEmbed(t *testing.T) {
	emb := &fakeEmbeds{}
	r := NewRenderer(baseRegistry(t), WithEmbedResolver(emb))
	b := Block{ID: "e", Type: EmbedTag, Value: Embed{URL: "https://youtu.be/x"}}
	out := render(t, r.RenderBlock(b))
	assert.Equal(t, `<div class="block-embed"><iframe src="https://youtu.be/x"></iframe></div>`, out)

	emb.fail = true
	out = render(t, r.RenderBlock(b))
	assert.Contains(t, out, "block-placeholder")
	assert.Equal(t, Embed{URL: "https://youtu.be/x"}, b.Value, "stored value untouched")
}

func TestRenderOpaqueAndUntemplatedBlocksAreEmpty(t *testing.T) {
	r := NewRenderer(baseRegistry(t), WithTemplates(TemplateSet{}))
	out := render(t, r.RenderStream(Stream{
		{ID: "1", Type: "video_block", Value: Opaque{Raw: []byte(`{"src":"a"}`)}},
		{ID: "2", Type: HeadingTag, Value: Heading{Text: "no template"}},
	}))
	assert.Empty(t, out)
}

func TestRenderCardMissingImage(t *testing.T) {
	r := NewRenderer(portfolioRegistry(t), WithImageResolver(fakeImages{1: {URL: "/media/images/a.jpg"}}))
	out := render(t, r.RenderBlock(Block{ID: "c", Type: CardTag, Value: Card{
		Heading: "Work",
		Cards: []CardItem{
			{Image: ImageRef{ID: 1}, Title: "One", Link: "https://example.com"},
			{Image: ImageRef{ID: 2}, Title: "Two"},
		},
	}}))
	assert.Contains(t, out, `<img src="/media/images/a.jpg" alt="One"`)
	assert.Contains(t, out, `<h3>Two</h3>`)
	assert.Equal(t, 1, strings.Count(out, "block-placeholder"))
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestRenderCustomTemplate(t *testing.T) {
	ts := DefaultTemplates()
	ts["blocks/heading"] = func(rc RenderContext) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, err := fmt.Fprintf(w, "<p>%s</p>", rc.Value.(Heading).Text)
			return err
		})
	}
	r := NewRenderer(baseRegistry(t), WithTemplates(ts))
	assert.Equal(t, "<p>Custom</p>", render(t, r.RenderBlock(Block{Type: HeadingTag, Value: Heading{Text: "Custom"}})))
}

func TestRenderTemplateErrorPropagates(t *testing.T) {
	ts := TemplateSet{"blocks/heading": func(RenderContext) templ.Component {
		return templ.ComponentFunc(func(context.Context, io.Writer) error { return errors.New("boom") })
	}}
	r := NewRenderer(baseRegistry(t), WithTemplates(ts))
	var buf bytes.Buffer
	err := r.RenderBlock(Block{ID: "x", Type: HeadingTag, Value: Heading{Text: "A"}}).Render(context.Background(), &buf)
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestSerializeParseRender(t *testing.T) {
	images := fakeImages{1: {URL: "/media/images/a.jpg", Width: 800, Height: 600}}
	want := []string{
		`<h2 class="block-heading">Welcome</h2>`,
		`<div class="block-paragraph"><p>Hi</p></div>`,
		`<figure class="block-image"><img src="/media/images/a.jpg" alt="A photo" width="800" height="600" loading="lazy" decoding="async"/><figcaption>A photo</figcaption></figure>`,
	}
	tests := []struct {
		name string
		ids  []string
	}{
		{"stored ids", []string{"h1", "p1", "i1"}},
		{"new blocks", []string{"", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := baseRegistry(t)
			s := Stream{
				{ID: tt.ids[0], Type: HeadingTag, Value: Heading{Text: "Welcome", Size: SizeH2}},
				{ID: tt.ids[1], Type: ParagraphTag, Value: Paragraph{HTML: "<p>Hi</p>"}},
				{ID: tt.ids[2], Type: ImageTag, Value: CaptionedImage{Image: ImageRef{ID: 1}, Caption: "A photo"}},
			}
			data, err := Serialize(s)
			require.NoError(t, err)
			back, err := Parse(data, reg, Strict)
			require.NoError(t, err)
			require.Len(t, back, 3)

			for i, b := range back {
				require.NotEmpty(t, b.ID)
				if tt.ids[i] != "" {
					assert.Equal(t, tt.ids[i], b.ID)
				}
				s[i].ID = b.ID
			}
			assert.True(t, s.Equal(back))

			again, err := Parse(mustSerialize(t, back), reg, Strict)
			require.NoError(t, err)
			assert.True(t, back.Equal(again), "ids survive a second round trip")

			out := render(t, NewRenderer(reg, WithImageResolver(images)).RenderStream(back))
			assert.Equal(t, strings.Join(want, ""), out)
		})
	}
}

func TestReorderChangesOnlyOrder(t *testing.T) {
	reg := baseRegistry(t)
	r := NewRenderer(reg, WithImageResolver(fakeImages{1: {URL: "/media/images/a.jpg"}}))
	s := Stream{
		{ID: "a", Type: HeadingTag, Value: Heading{Text: "First", Size: SizeH3}},
		{ID: "b", Type: ParagraphTag, Value: Paragraph{HTML: "<p>Middle</p>"}},
		{ID: "c", Type: ImageTag, Value: CaptionedImage{Image: ImageRef{ID: 1}, Caption: "Last"}},
	}
	frags := make(map[string]string, len(s))
	for _, b := range s {
		frags[b.ID] = render(t, r.RenderBlock(b))
		require.NotEmpty(t, frags[b.ID])
	}
	before := render(t, r.RenderStream(s))
	assert.Equal(t, frags["a"]+frags["b"]+frags["c"], before)

	swapped := Stream{s[2], s[1], s[0]}
	after := render(t, r.RenderStream(swapped))
	assert.Equal(t, frags["c"]+frags["b"]+frags["a"], after)
	assert.Equal(t, len(before), len(after))

	// The swap leaves the original stream untouched.
	assert.Equal(t, []string{"a", "b", "c"}, []string{s[0].ID, s[1].ID, s[2].ID})
}

type failingWriter struct {
	writes  int
	failOn  int
	written bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes >= w.failOn {
		return 0, errors.New("disk full")
	}
	return w.written.Write(p)
}

func TestTemplatesReturnWriteErrors(t *testing.T) {
	tests := []struct {
		name string
		rc   RenderContext
		tmpl Template
	}{
		{"image", RenderContext{
			Value: CaptionedImage{Image: ImageRef{ID: 1}, Caption: "Dunes", Attribution: "Ana"},
			Image: &Rendition{URL: "/a.jpg", Width: 10, Height: 10},
		}, imageTemplate},
		{"card", RenderContext{
			Value:  Card{Heading: "Work", Cards: []CardItem{{Image: ImageRef{ID: 1}, Title: "One"}, {Image: ImageRef{ID: 2}, Title: "Two"}}},
			Images: map[ImageRef]Rendition{{ID: 1}: {URL: "/a.jpg"}},
		}, cardTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &failingWriter{failOn: 2}
			err := tt.tmpl(tt.rc).Render(context.Background(), w)
			require.Error(t, err)
			assert.Equal(t, 2, w.writes, "writing stops at the first error")
		})
	}
}

func mustSerialize(t *testing.T, s Stream) []byte {
	t.Helper()
	data, err := Serialize(s)
	require.NoError(t, err)
	return data
}
