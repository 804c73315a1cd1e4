package pubsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// PageObject is the revision object type of pages.
const PageObject = "page"

// tagSeparator joins a page's tags in pageColumns. Tags may contain commas.
const tagSeparator = "\x1f"

const pageColumns = `id, type, parent_id, slug, url_path, title, live, has_unpublished_changes,
	first_published_at, last_published_at, latest_revision_id, live_revision_id, content, created_at,
	(SELECT group_concat(tag, char(31)) FROM page_tags WHERE page_tags.page_id = pages.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (Page, error) {
	var (
		p                                  Page
		typ                                string
		parentID, latestRev, liveRev, tags sql.NullString
		firstPub, lastPub                  sql.NullString
		createdAt                          string
		live, unpublished                  int
		content                            []byte
	)
	err := row.Scan(&p.ID, &typ, &parentID, &p.Slug, &p.URLPath, &p.Title, &live, &unpublished,
		&firstPub, &lastPub, &latestRev, &liveRev, &content, &createdAt, &tags)
	if err != nil {
		return Page{}, err
	}
	p.Type = PageType(typ)
	p.ParentID = parentID.String
	p.Live = live == 1
	p.HasUnpublishedChanges = unpublished == 1
	p.FirstPublishedAt = parseTime(firstPub)
	p.LastPublishedAt = parseTime(lastPub)
	p.LatestRevisionID = latestRev.String
	p.LiveRevisionID = liveRev.String
	p.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	if tags.Valid {
		p.Tags = cleanTags(strings.Split(tags.String, tagSeparator))
		sort.Strings(p.Tags)
	}
	p.Content, err = decompressContent(content)
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *Store) queryPages(ctx context.Context, query string, args ...any) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *Store) queryPage(ctx context.Context, query string, args ...any) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, query, args...))
}

// CreatePage inserts a new, unpublished page. The parent must accept the
// page type; the URL path is derived from the parent path and the slug.
// On success p carries its new ID, URL path and creation time.
func (s *Store) CreatePage(ctx context.Context, p *Page) error {
	if err := s.preparePage(ctx, p); err != nil {
		return err
	}
	return insertPage(ctx, s.db, p)
}

// CreateDraftPage creates p together with its first revision. Either both
// are stored or neither is.
func (s *Store) CreateDraftPage(ctx context.Context, p *Page, title string, content []byte) (Revision, error) {
	if err := s.preparePage(ctx, p); err != nil {
		return Revision{}, err
	}
	rev, err := s.newRevision(PageObject, p.ID, title, content)
	if err != nil {
		return Revision{}, err
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := insertPage(ctx, tx, p); err != nil {
			return err
		}
		return insertRevision(ctx, tx, &rev)
	})
	if err != nil {
		return Revision{}, err
	}
	return rev, nil
}

func (s *Store) preparePage(ctx context.Context, p *Page) error {
	parents, ok := allowedParents[p.Type]
	if !ok {
		return fmt.Errorf("unknown page type %q", p.Type)
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPage)
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	p.Slug = Slugify(p.Slug)

	if len(parents) == 0 {
		if p.ParentID != "" {
			return fmt.Errorf("%w: %s pages are site roots", ErrInvalidParent, p.Type.Label())
		}
		if _, err := s.Root(ctx); err == nil {
			return fmt.Errorf("%w: the site already has a root page", ErrInvalidParent)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		p.URLPath = "/"
	} else {
		if p.ParentID == "" {
			return fmt.Errorf("%w: %s pages need a parent", ErrInvalidParent, p.Type.Label())
		}
		parent, err := s.GetPage(ctx, p.ParentID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: parent %s does not exist", ErrInvalidParent, p.ParentID)
		}
		if err != nil {
			return err
		}
		if !slices.Contains(parents, parent.Type) {
			return fmt.Errorf("%w: %s cannot be created under %s", ErrInvalidParent, p.Type.Label(), parent.Type.Label())
		}
		if p.Slug == "" {
			return fmt.Errorf("%w: slug is required", ErrInvalidPage)
		}
		p.URLPath = parent.URLPath + p.Slug + "/"
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE url_path = ?`, p.URLPath).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrSlugTaken, p.URLPath)
	}

	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	p.Live = false
	return nil
}

func insertPage(ctx context.Context, x execer, p *Page) error {
	_, err := x.ExecContext(ctx, `INSERT INTO pages (id, type, parent_id, slug, url_path, title, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Type), nullString(p.ParentID), p.Slug, p.URLPath, p.Title, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

// GetPage returns a page by id regardless of publishing state.
func (s *Store) GetPage(ctx context.Context, id string) (Page, error) {
	return s.queryPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
}

// PageByPath returns a page by URL path regardless of publishing state.
func (s *Store) PageByPath(ctx context.Context, urlPath string) (Page, error) {
	return s.queryPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE url_path = ?`, urlPath)
}

// LivePageByPath returns a published page by URL path.
func (s *Store) LivePageByPath(ctx context.Context, urlPath string) (Page, error) {
	return s.queryPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE url_path = ? AND live = 1`, urlPath)
}

// Root returns the site root page.
func (s *Store) Root(ctx context.Context) (Page, error) {
	return s.queryPage(ctx, `SELECT `+pageColumns+` FROM pages WHERE parent_id IS NULL ORDER BY created_at LIMIT 1`)
}

// ListPages returns every page in tree order (by URL path), for the admin.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY url_path`)
}

// LiveChildren returns published children of parentID, newest first. An empty
// typ returns children of every type.
func (s *Store) LiveChildren(ctx context.Context, parentID string, typ PageType) ([]Page, error) {
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE parent_id = ? AND live = 1 AND (? = '' OR type = ?)
		ORDER BY first_published_at DESC`, parentID, string(typ), string(typ))
}

// LivePages returns every published page of typ (or of any type when typ is
// empty), newest first.
func (s *Store) LivePages(ctx context.Context, typ PageType) ([]Page, error) {
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE live = 1 AND (? = '' OR type = ?)
		ORDER BY first_published_at DESC`, string(typ), string(typ))
}

// LivePagesByTag returns published blog posts carrying tag exactly
// (case-sensitive), newest first.
func (s *Store) LivePagesByTag(ctx context.Context, tag string) ([]Page, error) {
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE live = 1 AND type = ? AND id IN (SELECT page_id FROM page_tags WHERE tag = ?)
		ORDER BY first_published_at DESC`, string(BlogPageType), tag)
}

// SearchPages matches q against the title and text of published pages.
func (s *Store) SearchPages(ctx context.Context, q string) ([]Page, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages
		WHERE live = 1 AND search_text LIKE ? ESCAPE '\'
		ORDER BY first_published_at DESC`, "%"+escaped+"%")
}

// ListTags returns the sorted set of tags on published blog posts.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT t.tag FROM page_tags t
		JOIN pages p ON p.id = t.page_id WHERE p.live = 1 ORDER BY t.tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeletePage removes a page, its descendants and everything attached to them.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	p, err := s.GetPage(ctx, id)
	if err != nil {
		return err
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(p.URLPath)
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		subtree := `SELECT id FROM pages WHERE url_path LIKE ? ESCAPE '\'`
		arg := escaped + "%"
		for _, q := range []string{
			`DELETE FROM page_tags WHERE page_id IN (` + subtree + `)`,
			`DELETE FROM form_submissions WHERE page_id IN (` + subtree + `)`,
			`DELETE FROM revisions WHERE object_type = 'page' AND object_id IN (` + subtree + `)`,
			`DELETE FROM pages WHERE id IN (` + subtree + `)`,
		} {
			if _, err := tx.ExecContext(ctx, q, arg); err != nil {
				return err
			}
		}
		return nil
	})
}
