package richtext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages map[int64]string

func (f fakeImages) ImageURL(_ context.Context, id int64) (string, error) {
	u, ok := f[id]
	if !ok {
		return "", errors.New("missing")
	}
	return u, nil
}

type fakePages map[string]string

func (f fakePages) PageURL(_ context.Context, id string) (string, error) {
	u, ok := f[id]
	if !ok {
		return "", errors.New("missing")
	}
	return u, nil
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com/a?b=c&d=e", "http://example.com/a?b=c&amp;d=e"},
		{"/blog/post/", "/blog/post/"},
		{"#section", "#section"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"JavaScript:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"//evil.example.com", ""},
		{"relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SafeURL(tt.input), "SafeURL(%q)", tt.input)
	}
}

func TestExpandImageEmbed(t *testing.T) {
	e := &Expander{Images: fakeImages{3: "/media/images/cat.jpg"}}
	got := e.Expand(context.Background(), `<p>Look</p><embed embedtype="image" id="3" format="left" alt="A cat"/>`)
	assert.Contains(t, got, `src="/media/images/cat.jpg"`)
	assert.Contains(t, got, `alt="A cat"`)
	assert.Contains(t, got, `class="richtext-image left"`)
	assert.NotContains(t, got, "<embed")
}

func TestExpandMissingImageIsDropped(t *testing.T) {
	e := &Expander{Images: fakeImages{}}
	got := e.Expand(context.Background(), `<p>a</p><embed embedtype="image" id="9" alt="gone"/><p>b</p>`)
	assert.Equal(t, "<p>a</p><p>b</p>", got)
}

func TestExpandPageLink(t *testing.T) {
	e := &Expander{Pages: fakePages{"abc": "/blog/hello/"}}
	got := e.Expand(context.Background(), `<a linktype="page" id="abc">Hello</a> and <a linktype="page" id="zzz">gone</a>`)
	assert.Equal(t, `<a href="/blog/hello/">Hello</a> and <a>gone</a>`, got)
}

func TestExpandSanitizesLinks(t *testing.T) {
	var e *Expander
	got := e.Expand(context.Background(), `<a href="javascript:alert(1)" onclick="x()">bad</a><a href="https://example.com">ok</a>`)
	assert.Equal(t, `<a>bad</a><a href="https://example.com" rel="noopener noreferrer">ok</a>`, got)
}

func TestExpandStripsScripts(t *testing.T) {
	e := &Expander{}
	got := e.Expand(context.Background(), `<p>hi</p><script>alert(1)</script><p onmouseover="x()">there</p>`)
	assert.Equal(t, `<p>hi</p><p>there</p>`, got)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world & friends", PlainText("<p>Hello <b>world</b></p>\n<p>&amp; friends</p>"))
	assert.Equal(t, "", PlainText(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	got := Truncate("the quick brown fox jumps over", 12)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "the quick…", got)
}

func TestFromMarkdown(t *testing.T) {
	out, err := FromMarkdown([]byte("# Title\n\nSome **bold** text.\n\n- one\n- two\n"))
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestFromMarkdownOmitsRawHTML(t *testing.T) {
	out, err := FromMarkdown([]byte("<script>alert(1)</script>\n"))
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestExpandStripsHandlersAndStrayTags(t *testing.T) {
	e := &Expander{}
	tests := []struct {
		name, in, want string
	}{
		{"slash before handler", `<svg/onload=alert(1)><p>x</p>`, `<svg><p>x</p>`},
		{"quoted handler", `<img src="/a.jpg" onerror='alert(1)'/>`, `<img src="/a.jpg"/>`},
		{"unclosed script", `<p>hi</p><script>alert(1)`, `<p>hi</p>alert(1)`},
		{"unterminated iframe", `<p>hi</p><iframe src="https://evil.example"`, `<p>hi</p>`},
		{"stray closing style", `a</style>b`, `ab`},
		{"handler text inside a value", `<a href="https://example.com/?onboarding=1">x</a>`, `<a href="https://example.com/?onboarding=1" rel="noopener noreferrer">x</a>`},
		{"handler text outside tags", `<p>set onboarding=true</p>`, `<p>set onboarding=true</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(context.Background(), tt.in))
		})
	}
}
