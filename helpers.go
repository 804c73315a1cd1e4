package pubsite

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PageURL is the absolute URL of a page on the configured site.
func PageURL(cfg SiteConfig, p Page) string {
	if p.URLPath == "/" {
		return BuildURL(cfg.URL) + "/"
	}
	return BuildURL(cfg.URL, p.URLPath)
}

// TagURL links a tag index page filtered by tag.
func TagURL(indexPath, tag string) string {
	return indexPath + "?tag=" + url.QueryEscape(tag)
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FilterRelatedPosts finds posts that share at least one tag with current.
// Tags match exactly, as on tag index pages.
func FilterRelatedPosts(current BlogPage, posts []BlogPage) []BlogPage {
	tagSet := make(map[string]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		tagSet[t] = struct{}{}
	}
	var related []BlogPage
	for _, p := range posts {
		if p.ID == current.ID {
			continue
		}
		for _, t := range p.Tags {
			if _, ok := tagSet[t]; ok {
				related = append(related, p)
				break
			}
		}
	}
	return related
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post BlogPage, cfg SiteConfig) string {
	postURL := PageURL(cfg, post.Page)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Intro,
		"datePublished": post.Date,
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !post.LastPublishedAt.IsZero() {
		data["dateModified"] = post.LastPublishedAt.Format("2006-01-02")
	}
	switch {
	case len(post.Authors) > 0:
		var authors []map[string]string
		for _, a := range post.Authors {
			authors = append(authors, map[string]string{"@type": "Person", "name": a.Name})
		}
		data["author"] = authors
	case cfg.Author != "":
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
