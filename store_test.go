package pubsite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "site.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Every call advances a minute so publish order is deterministic.
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return s
}

func mustCreatePage(t *testing.T, s *Store, typ PageType, parentID, title string) Page {
	t.Helper()
	p := Page{Type: typ, ParentID: parentID, Title: title}
	if err := s.CreatePage(context.Background(), &p); err != nil {
		t.Fatalf("CreatePage(%s %q) failed: %v", typ, title, err)
	}
	return p
}

func mustPublish(t *testing.T, s *Store, p Page, title string, content []byte) Revision {
	t.Helper()
	ctx := context.Background()
	rev, err := s.SaveRevision(ctx, PageObject, p.ID, title, content)
	if err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}
	if err := s.PublishRevision(ctx, rev.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	return rev
}

func blogContent(t *testing.T, intro string, tags ...string) []byte {
	t.Helper()
	content, err := EncodeBlog(BlogPage{Page: Page{Tags: tags}, Date: "2024-01-15", Intro: intro, Body: "<p>" + intro + "</p>"})
	if err != nil {
		t.Fatalf("EncodeBlog failed: %v", err)
	}
	return content
}

// testTree creates a home page with a blog index under it.
func testTree(t *testing.T, s *Store) (home, blog Page) {
	t.Helper()
	home = mustCreatePage(t, s, HomePageType, "", "Home")
	blog = mustCreatePage(t, s, BlogIndexPageType, home.ID, "Blog")
	return home, blog
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if _, err := s.Root(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Root on empty store: err = %v, want ErrNotFound", err)
	}
}

func TestCreatePageTreeRules(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	home, blog := testTree(t, s)

	if home.URLPath != "/" {
		t.Errorf("home URLPath = %q, want /", home.URLPath)
	}
	if blog.URLPath != "/blog/" {
		t.Errorf("blog URLPath = %q, want /blog/", blog.URLPath)
	}
	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Hello, World!")
	if post.URLPath != "/blog/hello-world/" {
		t.Errorf("post URLPath = %q, want /blog/hello-world/", post.URLPath)
	}

	tests := []struct {
		name string
		page Page
		want error
	}{
		{"second root", Page{Type: HomePageType, Title: "Other"}, ErrInvalidParent},
		{"post under home", Page{Type: BlogPageType, ParentID: home.ID, Title: "Stray"}, ErrInvalidParent},
		{"post without parent", Page{Type: BlogPageType, Title: "Orphan"}, ErrInvalidParent},
		{"missing parent", Page{Type: BlogPageType, ParentID: "nope", Title: "Lost"}, ErrInvalidParent},
		{"duplicate slug", Page{Type: BlogPageType, ParentID: blog.ID, Title: "Hello world"}, ErrSlugTaken},
		{"empty title", Page{Type: FormPageType, ParentID: home.ID, Title: "  "}, ErrInvalidPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.page
			if err := s.CreatePage(ctx, &p); !errors.Is(err, tt.want) {
				t.Fatalf("CreatePage err = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := s.GetPage(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got.Live {
		t.Error("new page should not be live")
	}
	if got.ParentID != blog.ID {
		t.Errorf("ParentID = %q, want %q", got.ParentID, blog.ID)
	}
}

func TestRevisionsAndPublishing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)
	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Draft Post")

	rev1, err := s.SaveRevision(ctx, PageObject, post.ID, "Draft Post", blogContent(t, "first", "go"))
	if err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}
	if rev1.Number != 1 {
		t.Errorf("first revision number = %d, want 1", rev1.Number)
	}
	if _, err := s.LivePageByPath(ctx, post.URLPath); !errors.Is(err, ErrNotFound) {
		t.Fatalf("draft should not be live: err = %v", err)
	}

	if err := s.PublishRevision(ctx, rev1.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	live, err := s.LivePageByPath(ctx, post.URLPath)
	if err != nil {
		t.Fatalf("LivePageByPath failed: %v", err)
	}
	if live.HasUnpublishedChanges {
		t.Error("publishing the latest revision should clear unpublished changes")
	}
	if live.FirstPublishedAt.IsZero() || !live.FirstPublishedAt.Equal(live.LastPublishedAt) {
		t.Errorf("first/last published = %v/%v, want equal and set", live.FirstPublishedAt, live.LastPublishedAt)
	}
	firstPublished := live.FirstPublishedAt

	rev2, err := s.SaveRevision(ctx, PageObject, post.ID, "Renamed Post", blogContent(t, "second", "web"))
	if err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}
	if rev2.Number != 2 {
		t.Errorf("second revision number = %d, want 2", rev2.Number)
	}
	got, _ := s.GetPage(ctx, post.ID)
	if !got.HasUnpublishedChanges || got.Title != "Draft Post" {
		t.Fatalf("saving a draft changed the live page: %+v", got)
	}

	if err := s.PublishRevision(ctx, rev2.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	got, _ = s.GetPage(ctx, post.ID)
	if got.Title != "Renamed Post" {
		t.Errorf("Title = %q, want Renamed Post", got.Title)
	}
	if !got.FirstPublishedAt.Equal(firstPublished) {
		t.Errorf("FirstPublishedAt moved from %v to %v", firstPublished, got.FirstPublishedAt)
	}
	if !got.LastPublishedAt.After(firstPublished) {
		t.Errorf("LastPublishedAt = %v, want after %v", got.LastPublishedAt, firstPublished)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "web" {
		t.Errorf("Tags = %v, want [web]", got.Tags)
	}

	// Republishing an older revision leaves the newer one pending.
	if err := s.PublishRevision(ctx, rev1.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	got, _ = s.GetPage(ctx, post.ID)
	if !got.HasUnpublishedChanges || got.LiveRevisionID != rev1.ID {
		t.Errorf("after rollback: unpublished=%v live=%s, want true/%s", got.HasUnpublishedChanges, got.LiveRevisionID, rev1.ID)
	}

	revs, err := s.ListRevisions(ctx, PageObject, post.ID)
	if err != nil {
		t.Fatalf("ListRevisions failed: %v", err)
	}
	if len(revs) != 2 || revs[0].ID != rev2.ID {
		t.Errorf("ListRevisions = %d revisions, want 2 newest first", len(revs))
	}

	if _, err := s.SaveRevision(ctx, PageObject, "missing", "x", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveRevision on missing page: err = %v, want ErrNotFound", err)
	}
}

func TestCreateDraftPage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)

	post := Page{Type: BlogPageType, ParentID: blog.ID, Title: "First"}
	rev, err := s.CreateDraftPage(ctx, &post, "First", blogContent(t, "a"))
	if err != nil {
		t.Fatalf("CreateDraftPage failed: %v", err)
	}
	if rev.Number != 1 || rev.ObjectID != post.ID {
		t.Errorf("revision = %d for %s, want 1 for %s", rev.Number, rev.ObjectID, post.ID)
	}
	got, err := s.GetPage(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got.Live || !got.HasUnpublishedChanges || got.LatestRevisionID != rev.ID {
		t.Errorf("page state = live %v unpublished %v latest %q", got.Live, got.HasUnpublishedChanges, got.LatestRevisionID)
	}

	dup := Page{Type: BlogPageType, ParentID: blog.ID, Title: "First"}
	if _, err := s.CreateDraftPage(ctx, &dup, "First", blogContent(t, "b")); !errors.Is(err, ErrSlugTaken) {
		t.Errorf("duplicate slug: err = %v, want ErrSlugTaken", err)
	}

	if _, err := s.db.Exec(`ALTER TABLE revisions RENAME TO revisions_old`); err != nil {
		t.Fatalf("rename revisions: %v", err)
	}
	orphan := Page{Type: BlogPageType, ParentID: blog.ID, Title: "Orphan"}
	if _, err := s.CreateDraftPage(ctx, &orphan, "Orphan", blogContent(t, "c")); err == nil {
		t.Fatal("CreateDraftPage succeeded without a revisions table")
	}
	if _, err := s.PageByPath(ctx, "/blog/orphan/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PageByPath after failed create: err = %v, want ErrNotFound", err)
	}
}

func TestUnpublish(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)
	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Post")
	mustPublish(t, s, post, "Post", blogContent(t, "intro", "go"))

	if err := s.Unpublish(ctx, PageObject, post.ID); err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	if _, err := s.LivePageByPath(ctx, post.URLPath); !errors.Is(err, ErrNotFound) {
		t.Errorf("unpublished page still live: err = %v", err)
	}
	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("ListTags = %v, want none from unpublished pages", tags)
	}
	if err := s.Unpublish(ctx, PageObject, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Unpublish missing: err = %v, want ErrNotFound", err)
	}
}

func TestLivePagesByTagIsExactAndLive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)

	older := mustCreatePage(t, s, BlogPageType, blog.ID, "Older")
	mustPublish(t, s, older, "Older", blogContent(t, "a", "Go", "web"))
	newer := mustCreatePage(t, s, BlogPageType, blog.ID, "Newer")
	mustPublish(t, s, newer, "Newer", blogContent(t, "b", "Go"))
	lower := mustCreatePage(t, s, BlogPageType, blog.ID, "Lower")
	mustPublish(t, s, lower, "Lower", blogContent(t, "c", "go"))
	draft := mustCreatePage(t, s, BlogPageType, blog.ID, "Draft")
	if _, err := s.SaveRevision(ctx, PageObject, draft.ID, "Draft", blogContent(t, "d", "Go")); err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}

	got, err := s.LivePagesByTag(ctx, "Go")
	if err != nil {
		t.Fatalf("LivePagesByTag failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LivePagesByTag(Go) = %d pages, want 2", len(got))
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("LivePagesByTag order = %s, %s; want newest first", got[0].Title, got[1].Title)
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	want := []string{"Go", "go", "web"}
	if len(tags) != len(want) {
		t.Fatalf("ListTags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("ListTags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestTagsWithCommasSurviveReads(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)

	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Games")
	mustPublish(t, s, post, "Games", blogContent(t, "a", "rock, paper, scissors", "go"))

	got, err := s.GetPage(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	want := []string{"go", "rock, paper, scissors"}
	if len(got.Tags) != len(want) {
		t.Fatalf("Tags = %q, want %q", got.Tags, want)
	}
	for i := range want {
		if got.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %q, want %q", i, got.Tags[i], want[i])
		}
	}

	pages, err := s.LivePagesByTag(ctx, "rock, paper, scissors")
	if err != nil {
		t.Fatalf("LivePagesByTag failed: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != post.ID {
		t.Errorf("LivePagesByTag = %d pages, want the tagged post", len(pages))
	}
	if pages, _ := s.LivePagesByTag(ctx, "paper"); len(pages) != 0 {
		t.Errorf("LivePagesByTag(paper) = %d pages, want 0", len(pages))
	}
}

func TestLiveChildrenNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	home, blog := testTree(t, s)
	mustPublish(t, s, blog, "Blog", []byte(`{"intro":""}`))

	a := mustCreatePage(t, s, BlogPageType, blog.ID, "A")
	b := mustCreatePage(t, s, BlogPageType, blog.ID, "B")
	mustPublish(t, s, b, "B", blogContent(t, "b"))
	mustPublish(t, s, a, "A", blogContent(t, "a"))

	got, err := s.LiveChildren(ctx, blog.ID, BlogPageType)
	if err != nil {
		t.Fatalf("LiveChildren failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("LiveChildren = %v, want A then B", got)
	}

	got, err = s.LiveChildren(ctx, home.ID, "")
	if err != nil {
		t.Fatalf("LiveChildren failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != blog.ID {
		t.Errorf("LiveChildren(home) = %d pages, want the blog index", len(got))
	}
}

func TestSearchPages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)
	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Gardening notes")
	mustPublish(t, s, post, "Gardening notes", blogContent(t, "Tomatoes need 100% sun"))

	tests := []struct {
		q    string
		want int
	}{
		{"tomatoes", 1},
		{"GARDENING", 1},
		{"100%", 1},
		{"_", 0},
		{"cucumbers", 0},
		{"  ", 0},
	}
	for _, tt := range tests {
		got, err := s.SearchPages(ctx, tt.q)
		if err != nil {
			t.Fatalf("SearchPages(%q) failed: %v", tt.q, err)
		}
		if len(got) != tt.want {
			t.Errorf("SearchPages(%q) = %d results, want %d", tt.q, len(got), tt.want)
		}
	}
}

func TestDeletePageRemovesSubtree(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	home, blog := testTree(t, s)
	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Post")
	mustPublish(t, s, post, "Post", blogContent(t, "x", "go"))
	portfolio := mustCreatePage(t, s, PortfolioPageType, home.ID, "Blogroll")

	if err := s.DeletePage(ctx, blog.ID); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	for _, id := range []string{blog.ID, post.ID} {
		if _, err := s.GetPage(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("page %s survived delete: err = %v", id, err)
		}
	}
	// /blogroll/ shares the /blog prefix but is not in the subtree.
	if _, err := s.GetPage(ctx, portfolio.ID); err != nil {
		t.Errorf("sibling page was deleted: %v", err)
	}
	revs, _ := s.ListRevisions(ctx, PageObject, post.ID)
	if len(revs) != 0 {
		t.Errorf("revisions survived delete: %d", len(revs))
	}
	tags, _ := s.ListTags(ctx)
	if len(tags) != 0 {
		t.Errorf("tags survived delete: %v", tags)
	}
}

func TestDeleteImageClearsAuthorPortrait(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	img := Image{Title: "Portrait", Filename: "portrait.jpg", OriginalName: "me.jpg", Width: 80, Height: 80, Size: 1000}
	if err := s.SaveImage(ctx, &img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	author := Author{Name: "Ada", ImageID: img.ID}
	if err := s.SaveAuthor(ctx, &author); err != nil {
		t.Fatalf("SaveAuthor failed: %v", err)
	}

	if _, err := s.DeleteImage(ctx, img.ID); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	got, err := s.GetAuthor(ctx, author.ID)
	if err != nil {
		t.Fatalf("GetAuthor failed: %v", err)
	}
	if got.ImageID != 0 {
		t.Errorf("author ImageID = %d, want 0 after image delete", got.ImageID)
	}
	if _, err := s.GetImage(ctx, img.ID); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("GetImage after delete: err = %v, want ErrImageNotFound", err)
	}
}

func TestDeleteImageDropsGalleryReferences(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, blog := testTree(t, s)

	var imgs []Image
	for _, name := range []string{"keep.jpg", "gone.jpg"} {
		img := Image{Title: name, Filename: name, OriginalName: name, Width: 800, Height: 600, Size: 1000}
		if err := s.SaveImage(ctx, &img); err != nil {
			t.Fatalf("SaveImage failed: %v", err)
		}
		imgs = append(imgs, img)
	}
	keep, gone := imgs[0], imgs[1]

	post := mustCreatePage(t, s, BlogPageType, blog.ID, "Trip")
	published, err := EncodeBlog(BlogPage{Date: "2024-01-15", Intro: "Trip", GalleryImages: []GalleryImage{
		{ImageID: gone.ID, Caption: "first"},
		{ImageID: keep.ID, Caption: "second"},
	}})
	if err != nil {
		t.Fatalf("EncodeBlog failed: %v", err)
	}
	mustPublish(t, s, post, "Trip", published)
	draft, err := EncodeBlog(BlogPage{Date: "2024-01-15", Intro: "Trip", GalleryImages: []GalleryImage{
		{ImageID: gone.ID, Caption: "only"},
	}})
	if err != nil {
		t.Fatalf("EncodeBlog failed: %v", err)
	}
	if _, err := s.SaveRevision(ctx, PageObject, post.ID, "Trip (draft)", draft); err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}

	if _, err := s.DeleteImage(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}

	got, err := s.GetPage(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	codec := &ContentCodec{}
	bp, err := codec.BlogPage(got)
	if err != nil {
		t.Fatalf("BlogPage failed: %v", err)
	}
	if len(bp.GalleryImages) != 1 || bp.GalleryImages[0] != (GalleryImage{ImageID: keep.ID, Caption: "second"}) {
		t.Errorf("live gallery = %+v, want only the kept image", bp.GalleryImages)
	}
	if bp.Intro != "Trip" || bp.Date != "2024-01-15" {
		t.Errorf("other fields changed: intro %q date %q", bp.Intro, bp.Date)
	}

	revs, err := s.ListRevisions(ctx, PageObject, post.ID)
	if err != nil {
		t.Fatalf("ListRevisions failed: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revs))
	}
	for _, r := range revs {
		doc, err := decodeRevision(r.Content)
		if err != nil {
			t.Fatalf("decodeRevision failed: %v", err)
		}
		bp, err := codec.BlogPage(Page{Content: doc.Content})
		if err != nil {
			t.Fatalf("BlogPage failed: %v", err)
		}
		for _, g := range bp.GalleryImages {
			if g.ImageID == gone.ID {
				t.Errorf("revision %d still references deleted image: %+v", r.Number, bp.GalleryImages)
			}
		}
	}
	if doc, _ := decodeRevision(revs[0].Content); doc.Title != "Trip (draft)" {
		t.Errorf("draft title = %q, want kept", doc.Title)
	}
}

func TestAuthorsByIDsKeepsOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	var ids []int64
	for _, name := range []string{"Zed", "Amy"} {
		a := Author{Name: name}
		if err := s.SaveAuthor(ctx, &a); err != nil {
			t.Fatalf("SaveAuthor failed: %v", err)
		}
		ids = append(ids, a.ID)
	}
	got, err := s.AuthorsByIDs(ctx, []int64{ids[0], 999, ids[1]})
	if err != nil {
		t.Fatalf("AuthorsByIDs failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Zed" || got[1].Name != "Amy" {
		t.Errorf("AuthorsByIDs = %+v, want Zed then Amy", got)
	}
	if err := s.SaveAuthor(ctx, &Author{ID: 999, Name: "Ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("updating a missing author: err = %v, want ErrNotFound", err)
	}
}

func TestFooterPublishing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ft, err := s.FooterText(ctx)
	if err != nil {
		t.Fatalf("FooterText failed: %v", err)
	}
	if ft.Live || ft.Body != "" {
		t.Fatalf("fresh footer = %+v, want empty and offline", ft)
	}

	rev, err := s.SaveFooterDraft(ctx, "<p>Hello</p>")
	if err != nil {
		t.Fatalf("SaveFooterDraft failed: %v", err)
	}
	ft, _ = s.FooterText(ctx)
	if ft.Live || !ft.HasUnpublishedChanges {
		t.Errorf("footer after draft = %+v, want offline with changes", ft)
	}
	draft, err := s.FooterDraft(ctx)
	if err != nil || draft != "<p>Hello</p>" {
		t.Errorf("FooterDraft = %q, %v", draft, err)
	}

	if err := s.PublishRevision(ctx, rev.ID); err != nil {
		t.Fatalf("PublishRevision failed: %v", err)
	}
	ft, _ = s.FooterText(ctx)
	if !ft.Live || ft.Body != "<p>Hello</p>" || ft.HasUnpublishedChanges {
		t.Errorf("published footer = %+v", ft)
	}

	if err := s.Unpublish(ctx, FooterTextObject, footerObjectID); err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	ft, _ = s.FooterText(ctx)
	if ft.Live || ft.Body != "" {
		t.Errorf("unpublished footer = %+v, want no body", ft)
	}
}

func TestNavigationSettings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SaveNavigationSettings(ctx, NavigationSettings{InstagramURL: "not a url"}); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("invalid URL: err = %v, want ErrInvalidSetting", err)
	}
	if err := s.SaveNavigationSettings(ctx, NavigationSettings{InstagramURL: " https://instagram.com/site "}); err != nil {
		t.Fatalf("SaveNavigationSettings failed: %v", err)
	}
	ns, err := s.NavigationSettings(ctx)
	if err != nil {
		t.Fatalf("NavigationSettings failed: %v", err)
	}
	if ns.InstagramURL != "https://instagram.com/site" {
		t.Errorf("InstagramURL = %q", ns.InstagramURL)
	}
}

func TestSubmissions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"first", "second"} {
		sub := FormSubmission{PageID: "form", Data: map[string]string{"name": name}}
		if err := s.SaveSubmission(ctx, &sub); err != nil {
			t.Fatalf("SaveSubmission failed: %v", err)
		}
	}
	subs, err := s.ListSubmissions(ctx, "form")
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(subs) != 2 || subs[0].Data["name"] != "second" {
		t.Errorf("ListSubmissions = %+v, want newest first", subs)
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" Go, web,, Go ,go ")
	want := []string{"Go", "web", "go"}
	if len(got) != len(want) {
		t.Fatalf("ParseTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseTags[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
