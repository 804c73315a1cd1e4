package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := DefaultCatalog().Registry(BasePolicy)
	require.NoError(t, err)
	return reg
}

func portfolioRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := DefaultCatalog().Registry(PortfolioPolicy)
	require.NoError(t, err)
	return reg
}

type imageSet map[int64]bool

func (s imageSet) ImageExists(_ context.Context, ref ImageRef) (bool, error) {
	return s[ref.ID], nil
}

func TestValidateHeading(t *testing.T) {
	reg := baseRegistry(t)
	ctx := context.Background()

	b, err := reg.Validate(ctx, HeadingTag, map[string]any{"heading_text": "Welcome", "size": "h2"})
	require.NoError(t, err)
	assert.Equal(t, HeadingTag, b.Type)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, Heading{Text: "Welcome", Size: SizeH2}, b.Value)

	b, err = reg.Validate(ctx, HeadingTag, map[string]any{"heading_text": "Plain"})
	require.NoError(t, err)
	assert.Equal(t, Heading{Text: "Plain", Size: SizeDefault}, b.Value)
}

func TestValidateHeadingRejectsUnknownSize(t *testing.T) {
	_, err := baseRegistry(t).Validate(context.Background(), HeadingTag, map[string]any{"heading_text": "Hi", "size": "h5"})
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	require.Len(t, ves, 1)
	assert.Equal(t, "size", ves[0].Field)
	assert.Equal(t, HeadingTag, ves[0].Block)
}

func TestValidateReportsEveryOffendingField(t *testing.T) {
	_, err := baseRegistry(t).Validate(context.Background(), HeadingTag, map[string]any{"heading_text": "  ", "size": "h9", "colour": "red"})
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	assert.Len(t, ves, 3)
	assert.True(t, ves.Has("heading_text"))
	assert.True(t, ves.Has("size"))
	assert.True(t, ves.Has("colour"))
}

func TestValidateImageRequired(t *testing.T) {
	_, err := baseRegistry(t).Validate(context.Background(), ImageTag, map[string]any{"caption": "x"})
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	assert.True(t, ves.Has("image"))
}

func TestValidateImageExistenceAtEditTime(t *testing.T) {
	reg := baseRegistry(t).WithImageChecker(imageSet{42: true})
	ctx := context.Background()

	b, err := reg.Validate(ctx, ImageTag, map[string]any{"image": float64(42), "caption": "Sunset"})
	require.NoError(t, err)
	assert.Equal(t, CaptionedImage{Image: ImageRef{ID: 42}, Caption: "Sunset"}, b.Value)

	_, err = reg.Validate(ctx, ImageTag, map[string]any{"image": float64(7)})
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	assert.True(t, ves.Has("image"))
}

func TestValidateEmbedURL(t *testing.T) {
	reg := baseRegistry(t)
	ctx := context.Background()
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=SGJFWirQ3ks", true},
		{"http://vimeo.com/1234", true},
		{"not a url", false},
		{"ftp://example.com/file", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		b, err := reg.Validate(ctx, EmbedTag, tt.url)
		if tt.ok {
			require.NoError(t, err, tt.url)
			assert.Equal(t, Embed{URL: tt.url}, b.Value)
		} else {
			assert.Error(t, err, tt.url)
		}
	}
}

func TestValidateUnknownTag(t *testing.T) {
	_, err := baseRegistry(t).Validate(context.Background(), "video_block", "x")
	var uve *UnknownVariantError
	require.ErrorAs(t, err, &uve)
	assert.Equal(t, "video_block", uve.Tag)
	assert.Equal(t, BasePolicy, uve.Registry)
}

func TestPolicyWhitelists(t *testing.T) {
	ctx := context.Background()
	cardValue := map[string]any{"heading": "Work", "cards": []any{}}

	_, err := baseRegistry(t).Validate(ctx, CardTag, cardValue)
	var uve *UnknownVariantError
	assert.ErrorAs(t, err, &uve, "card is not part of base")

	_, err = portfolioRegistry(t).Validate(ctx, EmbedTag, "https://vimeo.com/1")
	assert.ErrorAs(t, err, &uve, "embed is not part of portfolio")

	_, err = portfolioRegistry(t).Validate(ctx, CardTag, cardValue)
	assert.NoError(t, err)
}

func TestCardNestedPaths(t *testing.T) {
	reg := portfolioRegistry(t).WithImageChecker(imageSet{1: true})
	_, err := reg.Validate(context.Background(), CardTag, map[string]any{
		"heading": "Projects",
		"cards": []any{
			map[string]any{"image": float64(1), "title": "First"},
			map[string]any{"image": float64(1), "title": ""},
			map[string]any{"title": "Third", "link": "nope"},
		},
	})
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	assert.True(t, ves.Has("cards.1.title"))
	assert.True(t, ves.Has("cards.2.image"))
	assert.True(t, ves.Has("cards.2.link"))
	assert.False(t, ves.Has("cards.0.title"))
	assert.Contains(t, err.Error(), "card_block.cards.1.title")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry("test")
	require.NoError(t, reg.Register(HeadingVariant()))
	assert.Error(t, reg.Register(HeadingVariant()))
	assert.Error(t, reg.Register(Variant{Tag: "", Schema: RichTextBlock{}}))
	assert.Error(t, reg.Register(Variant{Tag: "nothing"}))

	c := NewCatalog()
	require.NoError(t, c.Add(HeadingVariant()))
	assert.Error(t, c.Add(HeadingVariant()))
}

func TestCatalogCustomPolicy(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.DefinePolicy("minimal", HeadingTag, ParagraphTag))
	assert.Error(t, c.DefinePolicy("minimal", HeadingTag))
	assert.Error(t, c.DefinePolicy("broken", "missing_block"))

	reg, err := c.Registry("minimal")
	require.NoError(t, err)
	assert.Equal(t, []string{HeadingTag, ParagraphTag}, reg.Tags())

	_, err = c.Registry("nope")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, []string{BasePolicy, "minimal", PortfolioPolicy}, c.Policies())
}

func TestDescribe(t *testing.T) {
	desc, err := DefaultCatalog().Describe(BasePolicy)
	require.NoError(t, err)
	require.Len(t, desc, 4)
	assert.Equal(t, HeadingTag, desc[0].Tag)
	assert.Equal(t, "struct", desc[0].Schema.Kind)
	require.Len(t, desc[0].Schema.Children, 2)
	assert.Len(t, desc[0].Schema.Children[1].Choices, 4)

	data, err := json.Marshal(desc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"embed_block"`)
}

func TestCustomVariantWithoutDecoder(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Add(Variant{
		Tag:      "quote_block",
		Label:    "Quote",
		Template: "blocks/quote",
		Schema: StructBlock{Children: []Field{
			CharBlock{FieldName: "text", Required: true},
			CharBlock{FieldName: "source"},
		}},
	}))
	require.NoError(t, c.DefinePolicy("quotes", ParagraphTag, "quote_block"))
	reg, err := c.Registry("quotes")
	require.NoError(t, err)

	b, err := reg.Validate(context.Background(), "quote_block", map[string]any{"text": "Less is more"})
	require.NoError(t, err)
	assert.Equal(t, StructValue{"text": "Less is more", "source": ""}, b.Value)

	data, err := Serialize(Stream{b})
	require.NoError(t, err)
	back, err := Parse(data, reg, Strict)
	require.NoError(t, err)
	assert.True(t, back.Equal(Stream{b}))
}

func TestValidateStreamCollectsAllBlocks(t *testing.T) {
	reg := baseRegistry(t)
	_, err := reg.ValidateStream(context.Background(), []byte(`[
		{"type":"heading_block","value":{"heading_text":""}},
		{"type":"paragraph_block","value":"<p>ok</p>"},
		{"type":"embed_block","value":"nope"}
	]`))
	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	require.Len(t, ves, 2)
	assert.Equal(t, 0, ves[0].Index)
	assert.Equal(t, "heading_text", ves[0].Field)
	assert.Equal(t, 2, ves[1].Index)
	assert.Equal(t, EmbedTag, ves[1].Block)
}

func TestValidateStreamRejectsUnknown(t *testing.T) {
	_, err := baseRegistry(t).ValidateStream(context.Background(), []byte(`[{"type":"card_block","value":{}}]`))
	var uve *UnknownVariantError
	require.True(t, errors.As(err, &uve))
	assert.Equal(t, 0, uve.Index)
}
