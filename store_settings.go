package pubsite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/pubsite/blocks"
)

const navigationSettingKey = "navigation"

// ErrInvalidSetting is returned when a settings value fails validation.
var ErrInvalidSetting = errors.New("pubsite: invalid setting")

// NavigationSettings returns the site navigation settings, or zero values
// when none were saved.
func (s *Store) NavigationSettings(ctx context.Context) (NavigationSettings, error) {
	var (
		raw string
		ns  NavigationSettings
	)
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, navigationSettingKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ns, nil
	}
	if err != nil {
		return ns, err
	}
	if err := json.Unmarshal([]byte(raw), &ns); err != nil {
		return ns, fmt.Errorf("decode navigation settings: %w", err)
	}
	return ns, nil
}

// SaveNavigationSettings validates and stores ns. The Instagram URL must be
// empty or an absolute http(s) URL.
func (s *Store) SaveNavigationSettings(ctx context.Context, ns NavigationSettings) error {
	ns.InstagramURL = strings.TrimSpace(ns.InstagramURL)
	if ns.InstagramURL != "" && !blocks.ValidURL(ns.InstagramURL) {
		return fmt.Errorf("%w: instagram_url: enter a valid URL", ErrInvalidSetting)
	}
	raw, err := json.Marshal(ns)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, navigationSettingKey, string(raw))
	return err
}

// SaveSubmission stores a form submission and sets sub.ID.
func (s *Store) SaveSubmission(ctx context.Context, sub *FormSubmission) error {
	raw, err := json.Marshal(sub.Data)
	if err != nil {
		return err
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO form_submissions (page_id, data, submitted_at) VALUES (?, ?, ?)`,
		sub.PageID, string(raw), formatTime(sub.SubmittedAt))
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	sub.ID, err = res.LastInsertId()
	return err
}

// ListSubmissions returns a form page's submissions, newest first.
func (s *Store) ListSubmissions(ctx context.Context, pageID string) ([]FormSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, page_id, data, submitted_at FROM form_submissions
		WHERE page_id = ? ORDER BY submitted_at DESC, id DESC`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []FormSubmission
	for rows.Next() {
		var (
			sub       FormSubmission
			raw, when string
		)
		if err := rows.Scan(&sub.ID, &sub.PageID, &raw, &when); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &sub.Data); err != nil {
			return nil, fmt.Errorf("decode submission %d: %w", sub.ID, err)
		}
		sub.SubmittedAt = parseTime(sql.NullString{String: when, Valid: true})
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
