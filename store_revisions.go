package pubsite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const footerSettingKey = "footer_text"

// footerState is the settings row behind FooterText.
type footerState struct {
	Body                  string `json:"body"`
	Live                  bool   `json:"live"`
	HasUnpublishedChanges bool   `json:"has_unpublished_changes"`
	LatestRevisionID      string `json:"latest_revision_id,omitempty"`
	LiveRevisionID        string `json:"live_revision_id,omitempty"`
}

func scanRevision(row rowScanner) (Revision, error) {
	var (
		r         Revision
		content   []byte
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.ObjectType, &r.ObjectID, &r.Number, &content, &createdAt); err != nil {
		return Revision{}, err
	}
	var err error
	r.Content, err = decompressContent(content)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s: %w", r.ID, err)
	}
	r.CreatedAt = parseTime(sql.NullString{String: createdAt, Valid: true})
	return r, nil
}

const revisionColumns = `id, object_type, object_id, number, content, created_at`

// SaveRevision stores a new draft of an object. title and content form the
// revision envelope; content is the object's type-specific document.
func (s *Store) SaveRevision(ctx context.Context, objectType, objectID, title string, content []byte) (Revision, error) {
	rev, err := s.newRevision(objectType, objectID, title, content)
	if err != nil {
		return Revision{}, err
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		return insertRevision(ctx, tx, &rev)
	})
	if err != nil {
		return Revision{}, err
	}
	return rev, nil
}

func (s *Store) newRevision(objectType, objectID, title string, content []byte) (Revision, error) {
	data, err := encodeRevision(title, content)
	if err != nil {
		return Revision{}, err
	}
	return Revision{
		ID:         uuid.NewString(),
		ObjectType: objectType,
		ObjectID:   objectID,
		Content:    data,
		CreatedAt:  s.now().UTC(),
	}, nil
}

// insertRevision numbers rev, stores it and points its object's latest
// revision at it.
func insertRevision(ctx context.Context, tx *sql.Tx, rev *Revision) error {
	switch rev.ObjectType {
	case PageObject:
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE id = ?`, rev.ObjectID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	case FooterTextObject:
	default:
		return fmt.Errorf("unknown revision object type %q", rev.ObjectType)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM revisions WHERE object_type = ? AND object_id = ?`,
		rev.ObjectType, rev.ObjectID).Scan(&rev.Number); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO revisions (`+revisionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.ObjectType, rev.ObjectID, rev.Number, compressContent(rev.Content), formatTime(rev.CreatedAt)); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if rev.ObjectType == PageObject {
		_, err := tx.ExecContext(ctx, `UPDATE pages SET latest_revision_id = ?, has_unpublished_changes = 1 WHERE id = ?`, rev.ID, rev.ObjectID)
		return err
	}
	st, err := loadFooterState(ctx, tx)
	if err != nil {
		return err
	}
	st.LatestRevisionID = rev.ID
	st.HasUnpublishedChanges = true
	return saveFooterState(ctx, tx, st)
}

// GetRevision returns a revision by id.
func (s *Store) GetRevision(ctx context.Context, id string) (Revision, error) {
	return scanRevision(s.db.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE id = ?`, id))
}

// LatestRevision returns the newest revision of an object.
func (s *Store) LatestRevision(ctx context.Context, objectType, objectID string) (Revision, error) {
	return scanRevision(s.db.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions
		WHERE object_type = ? AND object_id = ? ORDER BY number DESC LIMIT 1`, objectType, objectID))
}

// ListRevisions returns an object's revisions, newest first.
func (s *Store) ListRevisions(ctx context.Context, objectType, objectID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+revisionColumns+` FROM revisions
		WHERE object_type = ? AND object_id = ? ORDER BY number DESC`, objectType, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// PublishRevision makes a revision the live version of its object.
// first_published_at is set on the first publish only.
func (s *Store) PublishRevision(ctx context.Context, revisionID string) error {
	rev, err := s.GetRevision(ctx, revisionID)
	if err != nil {
		return err
	}
	doc, err := decodeRevision(rev.Content)
	if err != nil {
		return err
	}
	now := formatTime(s.now())

	switch rev.ObjectType {
	case PageObject:
		page, err := s.GetPage(ctx, rev.ObjectID)
		if err != nil {
			return err
		}
		title := doc.Title
		if title == "" {
			title = page.Title
		}
		idx := indexContent(page.Type, title, doc.Content)
		return withTx(ctx, s.db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `UPDATE pages SET
				title = ?, content = ?, live = 1,
				has_unpublished_changes = CASE WHEN latest_revision_id = ? THEN 0 ELSE 1 END,
				first_published_at = COALESCE(first_published_at, ?),
				last_published_at = ?, live_revision_id = ?, search_text = ?
				WHERE id = ?`,
				title, compressContent(doc.Content), rev.ID, now, now, rev.ID, idx.searchText, page.ID)
			if err != nil {
				return fmt.Errorf("publish page: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id = ?`, page.ID); err != nil {
				return err
			}
			for _, t := range idx.tags {
				if _, err := tx.ExecContext(ctx, `INSERT INTO page_tags (page_id, tag) VALUES (?, ?)`, page.ID, t); err != nil {
					return err
				}
			}
			return nil
		})

	case FooterTextObject:
		var body footerDoc
		if err := unmarshalDoc(doc.Content, &body); err != nil {
			return err
		}
		return withTx(ctx, s.db, func(tx *sql.Tx) error {
			st, err := loadFooterState(ctx, tx)
			if err != nil {
				return err
			}
			st.Body = body.Body
			st.Live = true
			st.LiveRevisionID = rev.ID
			st.HasUnpublishedChanges = st.LatestRevisionID != rev.ID
			return saveFooterState(ctx, tx, st)
		})
	}
	return fmt.Errorf("unknown revision object type %q", rev.ObjectType)
}

// Unpublish takes an object offline. Its content and revisions are kept.
func (s *Store) Unpublish(ctx context.Context, objectType, objectID string) error {
	switch objectType {
	case PageObject:
		res, err := s.db.ExecContext(ctx, `UPDATE pages SET live = 0,
			has_unpublished_changes = CASE WHEN latest_revision_id IS NULL THEN 0 ELSE 1 END
			WHERE id = ?`, objectID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	case FooterTextObject:
		return withTx(ctx, s.db, func(tx *sql.Tx) error {
			st, err := loadFooterState(ctx, tx)
			if err != nil {
				return err
			}
			st.Live = false
			st.HasUnpublishedChanges = st.LatestRevisionID != ""
			return saveFooterState(ctx, tx, st)
		})
	}
	return fmt.Errorf("unknown revision object type %q", objectType)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func loadFooterState(ctx context.Context, q queryRower) (footerState, error) {
	var st footerState
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, footerSettingKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, fmt.Errorf("decode footer: %w", err)
	}
	return st, nil
}

func saveFooterState(ctx context.Context, x execer, st footerState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, footerSettingKey, string(raw))
	return err
}

// FooterText returns the footer's publishing state. Body is empty unless the
// footer is live.
func (s *Store) FooterText(ctx context.Context) (FooterText, error) {
	st, err := loadFooterState(ctx, s.db)
	if err != nil {
		return FooterText{}, err
	}
	ft := FooterText{
		Live:                  st.Live,
		HasUnpublishedChanges: st.HasUnpublishedChanges,
		LatestRevisionID:      st.LatestRevisionID,
	}
	if st.Live {
		ft.Body = st.Body
	}
	return ft, nil
}

// SaveFooterDraft stores body as a new footer revision.
func (s *Store) SaveFooterDraft(ctx context.Context, body string) (Revision, error) {
	content, err := json.Marshal(footerDoc{Body: body})
	if err != nil {
		return Revision{}, err
	}
	return s.SaveRevision(ctx, FooterTextObject, footerObjectID, "Footer", content)
}

// FooterDraft returns the body of the newest footer revision, or the live body
// when no revision exists.
func (s *Store) FooterDraft(ctx context.Context) (string, error) {
	rev, err := s.LatestRevision(ctx, FooterTextObject, footerObjectID)
	if errors.Is(err, ErrNotFound) {
		ft, err := s.FooterText(ctx)
		return ft.Body, err
	}
	if err != nil {
		return "", err
	}
	doc, err := decodeRevision(rev.Content)
	if err != nil {
		return "", err
	}
	var body footerDoc
	if err := unmarshalDoc(doc.Content, &body); err != nil {
		return "", err
	}
	return body.Body, nil
}
