package pubsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/eringen/pubsite/richtext"
)

// ContentProblem is a stored document that no longer parses.
type ContentProblem struct {
	Page Page
	// Revision is the revision number that failed, or 0 for live content.
	Revision int
	Err      error
}

func (p ContentProblem) String() string {
	where := "live"
	if p.Revision > 0 {
		where = fmt.Sprintf("revision %d", p.Revision)
	}
	return fmt.Sprintf("%s (%s, %s): %v", p.Page.URLPath, p.Page.Type, where, p.Err)
}

// CheckPages parses the live content and latest draft of every page with cc.
// With a strict codec this lists every block whose variant is gone.
func CheckPages(ctx context.Context, s *Store, cc *ContentCodec) ([]ContentProblem, error) {
	pages, err := s.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	var problems []ContentProblem
	for _, p := range pages {
		if p.Live {
			if err := cc.CheckContent(p.Type, p.Content); err != nil {
				problems = append(problems, ContentProblem{Page: p, Err: err})
			}
		}
		if p.LatestRevisionID == "" || p.LatestRevisionID == p.LiveRevisionID {
			continue
		}
		rev, err := s.GetRevision(ctx, p.LatestRevisionID)
		if err != nil {
			return nil, err
		}
		doc, err := decodeRevision(rev.Content)
		if err == nil {
			err = cc.CheckContent(p.Type, doc.Content)
		}
		if err != nil {
			problems = append(problems, ContentProblem{Page: p, Revision: rev.Number, Err: err})
		}
	}
	return problems, nil
}

type postMatter struct {
	Title   string   `yaml:"title"`
	Slug    string   `yaml:"slug"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags"`
	Summary string   `yaml:"summary"`
	Intro   string   `yaml:"intro"`
}

// ImportMarkdown creates a blog post under the blog index at parentPath from
// a markdown file with YAML front matter. The post is published unless
// draft is set.
func ImportMarkdown(ctx context.Context, s *Store, parentPath, name string, src []byte, draft bool) (Page, error) {
	parent, err := s.PageByPath(ctx, parentPath)
	if errors.Is(err, ErrNotFound) {
		return Page{}, fmt.Errorf("%w: no page at %s", ErrInvalidParent, parentPath)
	}
	if err != nil {
		return Page{}, err
	}

	var fm postMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &fm)
	if err != nil {
		return Page{}, fmt.Errorf("%s: front matter: %w", name, err)
	}
	html, err := richtext.FromMarkdown(body)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", name, err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if fm.Title == "" {
		fm.Title = strings.ReplaceAll(base, "-", " ")
	}
	if fm.Slug == "" {
		fm.Slug = base
	}
	if fm.Date == "" {
		fm.Date = time.Now().Format("2006-01-02")
	} else if t, err := parseFrontMatterDate(fm.Date); err == nil {
		fm.Date = t.Format("2006-01-02")
	} else {
		return Page{}, fmt.Errorf("%s: %w", name, err)
	}
	intro := fm.Intro
	if intro == "" {
		intro = fm.Summary
	}
	if intro == "" {
		intro = richtext.Truncate(richtext.PlainText(html), maxIntroLength-1)
	}

	content, err := EncodeBlog(BlogPage{
		Page:  Page{Tags: cleanTags(fm.Tags)},
		Date:  fm.Date,
		Intro: intro,
		Body:  html,
	})
	if err != nil {
		return Page{}, err
	}
	page := Page{Type: BlogPageType, ParentID: parent.ID, Title: fm.Title, Slug: fm.Slug}
	rev, err := s.CreateDraftPage(ctx, &page, page.Title, content)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", name, err)
	}
	if !draft {
		if err := s.PublishRevision(ctx, rev.ID); err != nil {
			return Page{}, err
		}
	}
	return s.GetPage(ctx, page.ID)
}

func parseFrontMatterDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q, use YYYY-MM-DD", s)
}
