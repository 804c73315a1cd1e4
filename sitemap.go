package pubsite

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// renderSitemap lists every live page. Form pages are left out.
func (a *App) renderSitemap(c echo.Context, pages []Page) error {
	urls := make([]sitemapURL, 0, len(pages))
	for _, p := range pages {
		if p.Type == FormPageType {
			continue
		}
		u := sitemapURL{Loc: PageURL(a.Config, p)}
		if !p.LastPublishedAt.IsZero() {
			u.LastMod = p.LastPublishedAt.UTC().Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
