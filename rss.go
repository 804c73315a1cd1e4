package pubsite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/richtext"
)

const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
	Author      string   `xml:"author,omitempty"`
}

// renderRSS writes the newest posts as an RSS 2.0 feed. posts arrive newest first.
func (a *App) renderRSS(c echo.Context, posts []BlogPage) error {
	if len(posts) > feedSize {
		posts = posts[:feedSize]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if t, err := time.Parse("2006-01-02", p.Date); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		} else if !p.FirstPublishedAt.IsZero() {
			pubDate = p.FirstPublishedAt.Format(time.RFC1123Z)
		}
		link := PageURL(a.Config, p.Page)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: richtext.PlainText(p.Intro),
			PubDate:     pubDate,
			GUID:        link,
			Categories:  p.Tags,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(a.Config.URL) + "/",
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
