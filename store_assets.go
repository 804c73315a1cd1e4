package pubsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/pubsite/blocks"
)

func scanImage(row rowScanner) (Image, error) {
	var (
		img        Image
		uploadedAt string
	)
	err := row.Scan(&img.ID, &img.Title, &img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &uploadedAt)
	if err != nil {
		return Image{}, err
	}
	img.UploadedAt = parseTime(sql.NullString{String: uploadedAt, Valid: true})
	return img, nil
}

const imageColumns = `id, title, filename, original_name, width, height, size, uploaded_at`

// SaveImage records image metadata and sets img.ID.
func (s *Store) SaveImage(ctx context.Context, img *Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = s.now().UTC()
	}
	if strings.TrimSpace(img.Title) == "" {
		img.Title = img.OriginalName
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO images (title, filename, original_name, width, height, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.Title, img.Filename, img.OriginalName, img.Width, img.Height, img.Size, formatTime(img.UploadedAt))
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	img.ID, err = res.LastInsertId()
	return err
}

// GetImage returns image metadata by id.
func (s *Store) GetImage(ctx context.Context, id int64) (Image, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}
	return img, err
}

// ListImages returns all images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// FilenameTaken reports whether an image already uses filename.
func (s *Store) FilenameTaken(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// DeleteImage removes an image record, clears author portraits that used it
// and drops it from blog galleries, live content and revisions alike. Block
// references are left dangling and render as placeholders.
func (s *Store) DeleteImage(ctx context.Context, id int64) (Image, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return Image{}, err
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE authors SET image_id = NULL WHERE image_id = ?`, id); err != nil {
			return err
		}
		if err := dropFromGalleries(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return Image{}, err
	}
	return img, nil
}

type contentUpdate struct {
	query   string
	id      string
	content []byte
}

func dropFromGalleries(ctx context.Context, tx *sql.Tx, imageID int64) error {
	var updates []contentUpdate

	pages, err := tx.QueryContext(ctx, `SELECT id, content FROM pages WHERE type = ?`, string(BlogPageType))
	if err != nil {
		return err
	}
	for pages.Next() {
		var id string
		var raw []byte
		if err := pages.Scan(&id, &raw); err != nil {
			pages.Close()
			return err
		}
		content, err := decompressContent(raw)
		if err != nil {
			pages.Close()
			return fmt.Errorf("page %s: %w", id, err)
		}
		out, changed, err := withoutGalleryImage(content, imageID)
		if err != nil {
			pages.Close()
			return fmt.Errorf("page %s: %w", id, err)
		}
		if changed {
			updates = append(updates, contentUpdate{`UPDATE pages SET content = ? WHERE id = ?`, id, compressContent(out)})
		}
	}
	pages.Close()
	if err := pages.Err(); err != nil {
		return err
	}

	revs, err := tx.QueryContext(ctx, `SELECT r.id, r.content FROM revisions r
		JOIN pages p ON p.id = r.object_id
		WHERE r.object_type = ? AND p.type = ?`, PageObject, string(BlogPageType))
	if err != nil {
		return err
	}
	for revs.Next() {
		var id string
		var raw []byte
		if err := revs.Scan(&id, &raw); err != nil {
			revs.Close()
			return err
		}
		data, err := decompressContent(raw)
		if err != nil {
			revs.Close()
			return fmt.Errorf("revision %s: %w", id, err)
		}
		doc, err := decodeRevision(data)
		if err != nil {
			revs.Close()
			return fmt.Errorf("revision %s: %w", id, err)
		}
		out, changed, err := withoutGalleryImage(doc.Content, imageID)
		if err != nil {
			revs.Close()
			return fmt.Errorf("revision %s: %w", id, err)
		}
		if !changed {
			continue
		}
		if data, err = encodeRevision(doc.Title, out); err != nil {
			revs.Close()
			return err
		}
		updates = append(updates, contentUpdate{`UPDATE revisions SET content = ? WHERE id = ?`, id, compressContent(data)})
	}
	revs.Close()
	if err := revs.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, u.query, u.content, u.id); err != nil {
			return err
		}
	}
	return nil
}

// ImageExists implements blocks.ImageChecker for edit-time validation.
func (s *Store) ImageExists(ctx context.Context, ref blocks.ImageRef) (bool, error) {
	if ref.IsZero() {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE id = ?`, ref.ID).Scan(&n)
	return n > 0, err
}

func scanAuthor(row rowScanner) (Author, error) {
	var (
		a       Author
		imageID sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Name, &imageID); err != nil {
		return Author{}, err
	}
	a.ImageID = imageID.Int64
	return a, nil
}

// SaveAuthor inserts a new author (ID zero) or updates an existing one.
func (s *Store) SaveAuthor(ctx context.Context, a *Author) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return errors.New("author name is required")
	}
	imageID := sql.NullInt64{Int64: a.ImageID, Valid: a.ImageID != 0}
	if a.ID == 0 {
		res, err := s.db.ExecContext(ctx, `INSERT INTO authors (name, image_id) VALUES (?, ?)`, a.Name, imageID)
		if err != nil {
			return fmt.Errorf("insert author: %w", err)
		}
		a.ID, err = res.LastInsertId()
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE authors SET name = ?, image_id = ? WHERE id = ?`, a.Name, imageID, a.ID)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAuthor returns an author by id.
func (s *Store) GetAuthor(ctx context.Context, id int64) (Author, error) {
	return scanAuthor(s.db.QueryRowContext(ctx, `SELECT id, name, image_id FROM authors WHERE id = ?`, id))
}

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, image_id FROM authors ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// AuthorsByIDs returns the authors in ids order, skipping ids that no
// longer exist.
func (s *Store) AuthorsByIDs(ctx context.Context, ids []int64) ([]Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := s.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Author, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	out := make([]Author, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteAuthor removes an author. Posts keep the stale id, which
// AuthorsByIDs skips.
func (s *Store) DeleteAuthor(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	return err
}
