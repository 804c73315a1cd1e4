package pubsite_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eringen/pubsite"
	"github.com/eringen/pubsite/blocks"
	"github.com/eringen/pubsite/views"
)

const csrfToken = "test-csrf-token"

type recordingMailer struct {
	mu   sync.Mutex
	msgs []pubsite.Message
}

func (m *recordingMailer) Send(_ context.Context, msg pubsite.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *recordingMailer) sent() []pubsite.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubsite.Message(nil), m.msgs...)
}

type testSite struct {
	app    *pubsite.App
	mailer *recordingMailer
	home   pubsite.Page
	blog   pubsite.Page
	form   pubsite.Page
}

func newTestApp(t *testing.T) *testSite {
	t.Helper()
	dir := t.TempDir()
	cfg := pubsite.SiteConfig{
		Name:          "Test Site",
		URL:           "https://example.com",
		DatabasePath:  filepath.Join(dir, "site.db"),
		MediaDir:      filepath.Join(dir, "media"),
		AdminPassword: "secret",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}
	mailer := &recordingMailer{}
	app := pubsite.New(cfg, views.Default(),
		pubsite.WithLogger(zerolog.Nop()),
		pubsite.WithMailer(mailer),
		pubsite.WithImageStorage(pubsite.NewFSImageStorage(filepath.Join(dir, "media"), "/media/")),
	)
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { app.Close() })

	ts := &testSite{app: app, mailer: mailer}
	ts.home = ts.create(t, pubsite.HomePageType, "", "Home", mustContent(pubsite.EncodeHome("<p>Welcome</p>", blocks.Stream{})))
	ts.blog = ts.create(t, pubsite.BlogIndexPageType, ts.home.ID, "Blog", mustContent(pubsite.EncodeBlogIndex("")))
	ts.create(t, pubsite.BlogTagIndexPageType, ts.blog.ID, "Tags", []byte(`{}`))
	ts.form = ts.create(t, pubsite.FormPageType, ts.home.ID, "Contact", mustContent(pubsite.EncodeForm(pubsite.FormPage{
		Fields: []pubsite.FormField{
			{Label: "Name", FieldType: pubsite.FieldSingleLine, Required: true},
			{Label: "Email", FieldType: pubsite.FieldEmail, Required: true},
		},
		ThankYouText: "<p>Thanks, we will be in touch.</p>",
		ToAddress:    "owner@example.com",
		Subject:      "New contact",
	})))
	return ts
}

func mustContent(data []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return data
}

// create adds a page and publishes content, or leaves it a draft when
// content is nil.
func (ts *testSite) create(t *testing.T, typ pubsite.PageType, parentID, title string, content []byte) pubsite.Page {
	t.Helper()
	ctx := context.Background()
	p := pubsite.Page{Type: typ, ParentID: parentID, Title: title}
	if err := ts.app.Store.CreatePage(ctx, &p); err != nil {
		t.Fatalf("CreatePage(%q) failed: %v", title, err)
	}
	if content == nil {
		return p
	}
	rev, err := ts.app.Store.SaveRevision(ctx, pubsite.PageObject, p.ID, title, content)
	if err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}
	if err := ts.app.Store.PublishRevision(ctx, rev.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	ts.app.Cache.Invalidate()
	return p
}

func (ts *testSite) post(t *testing.T, title string, live bool, tags ...string) pubsite.Page {
	t.Helper()
	content := mustContent(pubsite.EncodeBlog(pubsite.BlogPage{
		Page:  pubsite.Page{Tags: tags},
		Date:  "2024-05-01",
		Intro: title + " intro",
		Body:  "<p>" + title + "</p>",
	}))
	if !live {
		p := ts.create(t, pubsite.BlogPageType, ts.blog.ID, title, nil)
		if _, err := ts.app.Store.SaveRevision(context.Background(), pubsite.PageObject, p.ID, title, content); err != nil {
			t.Fatalf("SaveRevision failed: %v", err)
		}
		return p
	}
	return ts.create(t, pubsite.BlogPageType, ts.blog.ID, title, content)
}

func (ts *testSite) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.app.Echo.ServeHTTP(rec, req)
	return rec
}

func (ts *testSite) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (ts *testSite) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	form.Set("_csrf", csrfToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: csrfToken})
	return ts.do(req, cookies...)
}

func (ts *testSite) postJSON(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: csrfToken})
	return ts.do(req, cookies...)
}

func (ts *testSite) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := ts.postForm("/admin/login/", url.Values{"password": {"secret"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name != "_csrf" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	return out
}

func TestTagIndexFiltersLivePostsExactly(t *testing.T) {
	ts := newTestApp(t)
	ts.post(t, "Lower post", true, "go", "web")
	ts.post(t, "Upper post", true, "Go")
	ts.post(t, "Draft post", false, "go")

	rec := ts.get("/blog/tags/?tag=go")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Lower post") {
		t.Error("tagged live post missing")
	}
	if strings.Contains(body, "Upper post") {
		t.Error("tag match should be case-sensitive")
	}
	if strings.Contains(body, "Draft post") {
		t.Error("draft post should not be listed")
	}

	rec = ts.get("/blog/tags/?tag=rust")
	if !strings.Contains(rec.Body.String(), "No posts with this tag.") {
		t.Error("unused tag should render an empty list")
	}
	rec = ts.get("/blog/tags/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Pick a tag") {
		t.Errorf("tag index without tag: status %d", rec.Code)
	}
}

func TestPublicPages(t *testing.T) {
	ts := newTestApp(t)
	ts.post(t, "First post", true, "go")

	tests := []struct {
		path string
		code int
		want string
	}{
		{"/", http.StatusOK, "Welcome"},
		{"/blog/", http.StatusOK, "First post"},
		{"/blog/first-post/", http.StatusOK, "First post intro"},
		{"/contact/", http.StatusOK, `name="email"`},
		{"/missing/", http.StatusNotFound, "Page not found"},
		{"/feed.xml", http.StatusOK, "https://example.com/blog/first-post/"},
		{"/sitemap.xml", http.StatusOK, "https://example.com/blog/"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.get(tt.path)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body does not contain %q", tt.want)
			}
		})
	}

	if strings.Contains(ts.get("/sitemap.xml").Body.String(), "/contact/") {
		t.Error("form pages should not be in the sitemap")
	}
}

func TestFormSubmission(t *testing.T) {
	ts := newTestApp(t)
	ctx := context.Background()

	rec := ts.postForm("/contact/", url.Values{"name": {"Ada"}, "email": {"nope"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid submission status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Enter a valid email address.") {
		t.Error("invalid submission should show the field error")
	}
	if subs, _ := ts.app.Store.ListSubmissions(ctx, ts.form.ID); len(subs) != 0 {
		t.Fatalf("invalid submission stored: %v", subs)
	}

	rec = ts.postForm("/contact/", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid submission status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Thanks, we will be in touch.") {
		t.Error("landing page should show the thank-you text")
	}
	subs, err := ts.app.Store.ListSubmissions(ctx, ts.form.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("ListSubmissions = %v, %v", subs, err)
	}
	if subs[0].Data["email"] != "ada@example.com" {
		t.Errorf("stored data = %v", subs[0].Data)
	}
	msgs := ts.mailer.sent()
	if len(msgs) != 1 || msgs[0].Subject != "New contact" || msgs[0].To[0] != "owner@example.com" {
		t.Errorf("mail = %+v", msgs)
	}

	if rec := ts.postForm("/blog/", url.Values{}); rec.Code != http.StatusNotFound {
		t.Errorf("POST to a non-form page = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/contact/", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := ts.do(req); rec.Code != http.StatusForbidden {
		t.Errorf("POST without CSRF token = %d, want 403", rec.Code)
	}
}

func TestStreamValidationAPI(t *testing.T) {
	ts := newTestApp(t)
	path := "/admin/api/policies/" + blocks.BasePolicy + "/validate/"

	if rec := ts.postJSON(path, `[]`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
	cookies := ts.login(t)

	rec := ts.postJSON(path, `[{"type":"heading_block","value":{"heading_text":"Hello","size":"h2"}}]`, cookies...)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid stream status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ok struct {
		Stream []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"stream"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ok); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(ok.Stream) != 1 || ok.Stream[0].ID == "" {
		t.Errorf("normalized stream = %+v, want an id filled in", ok.Stream)
	}

	rec = ts.postJSON(path, `[{"type":"paragraph_block","value":"<p>ok</p>"},{"type":"heading_block","value":{"heading_text":""}}]`, cookies...)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid stream status = %d, want 422", rec.Code)
	}
	var bad struct {
		Errors []struct {
			Block string `json:"block"`
			Index int    `json:"index"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bad); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(bad.Errors) == 0 || bad.Errors[0].Index != 1 {
		t.Errorf("errors = %+v, want the second block reported", bad.Errors)
	}

	if rec := ts.postJSON(path, `[{"type":"card_block","value":{}}]`, cookies...); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("variant outside policy = %d, want 422", rec.Code)
	}
	if rec := ts.postJSON(path, `{"type":`, cookies...); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed stream = %d, want 400", rec.Code)
	}
	if rec := ts.postJSON("/admin/api/policies/nope/validate/", `[]`, cookies...); rec.Code != http.StatusNotFound {
		t.Errorf("unknown policy = %d, want 404", rec.Code)
	}
}

func TestEditorRejectsInvalidStream(t *testing.T) {
	ts := newTestApp(t)
	cookies := ts.login(t)
	path := "/admin/pages/" + ts.home.ID + "/"

	rec := ts.postForm(path, url.Values{
		"title":  {"Home"},
		"body":   {`[{"type":"heading_block","value":{"heading_text":""}}]`},
		"action": {"publish"},
	}, cookies...)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	revs, err := ts.app.Store.ListRevisions(context.Background(), pubsite.PageObject, ts.home.ID)
	if err != nil || len(revs) != 1 {
		t.Fatalf("revisions = %d, %v, want only the original", len(revs), err)
	}

	rec = ts.postForm(path, url.Values{
		"title":  {"Home"},
		"intro":  {"<p>Updated</p>"},
		"body":   {`[{"type":"paragraph_block","value":"<p>New body</p>"}]`},
		"action": {"publish"},
	}, cookies...)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("publish status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body := ts.get("/").Body.String(); !strings.Contains(body, "New body") {
		t.Error("published change not visible on the live site")
	}
}
