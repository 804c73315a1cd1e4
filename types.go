package pubsite

import (
	"time"

	"github.com/eringen/pubsite/blocks"
)

// PageType identifies the schema of a page's content.
type PageType string

const (
	HomePageType         PageType = "home"
	BlogIndexPageType    PageType = "blog_index"
	BlogPageType         PageType = "blog"
	BlogTagIndexPageType PageType = "blog_tag_index"
	PortfolioPageType    PageType = "portfolio"
	FormPageType         PageType = "form"
)

// PageTypes lists every page type in the order the admin offers them.
var PageTypes = []PageType{HomePageType, BlogIndexPageType, BlogPageType, BlogTagIndexPageType, PortfolioPageType, FormPageType}

// Label is the human-readable name of a page type.
func (t PageType) Label() string {
	switch t {
	case HomePageType:
		return "Home page"
	case BlogIndexPageType:
		return "Blog index"
	case BlogPageType:
		return "Blog post"
	case BlogTagIndexPageType:
		return "Blog tag index"
	case PortfolioPageType:
		return "Portfolio"
	case FormPageType:
		return "Form page"
	}
	return string(t)
}

// allowedParents lists the page types each type may be created under.
// An empty list means the type is a site root.
var allowedParents = map[PageType][]PageType{
	HomePageType:         nil,
	BlogIndexPageType:    {HomePageType},
	BlogPageType:         {BlogIndexPageType},
	BlogTagIndexPageType: {HomePageType, BlogIndexPageType},
	PortfolioPageType:    {HomePageType},
	FormPageType:         {HomePageType},
}

// Page is the tree node and publishing state shared by every page type.
// Content holds the live, type-specific document as JSON.
type Page struct {
	ID                    string
	Type                  PageType
	ParentID              string
	Slug                  string
	URLPath               string
	Title                 string
	Live                  bool
	HasUnpublishedChanges bool
	FirstPublishedAt      time.Time
	LastPublishedAt       time.Time
	LatestRevisionID      string
	LiveRevisionID        string
	CreatedAt             time.Time
	Tags                  []string
	Content               []byte
}

// HomePage is the site root.
type HomePage struct {
	Page
	Intro string
	Body  blocks.Stream
}

// BlogIndexPage lists its live BlogPage children, newest first.
type BlogIndexPage struct {
	Page
	Intro string
}

// BlogPage is a single post.
type BlogPage struct {
	Page
	Date          string // YYYY-MM-DD
	Intro         string
	Body          string // rich text
	AuthorIDs     []int64
	Authors       []Author
	GalleryImages []GalleryImage
}

// MainImage returns the first gallery image, if any.
func (p BlogPage) MainImage() (GalleryImage, bool) {
	if len(p.GalleryImages) == 0 {
		return GalleryImage{}, false
	}
	return p.GalleryImages[0], true
}

// GalleryImage is one ordered image attached to a BlogPage.
type GalleryImage struct {
	ImageID int64  `json:"image"`
	Caption string `json:"caption"`
}

// BlogTagIndexPage lists live posts carrying the tag given in the query string.
type BlogTagIndexPage struct {
	Page
}

// PortfolioPage has a body restricted to the portfolio stream policy.
type PortfolioPage struct {
	Page
	Body blocks.Stream
}

// FormPage collects submissions and emails them.
type FormPage struct {
	Page
	Intro        string
	ThankYouText string
	Fields       []FormField
	FromAddress  string
	ToAddress    string
	Subject      string
}

// Form field types.
const (
	FieldSingleLine = "singleline"
	FieldMultiLine  = "multiline"
	FieldEmail      = "email"
	FieldNumber     = "number"
	FieldURL        = "url"
	FieldCheckbox   = "checkbox"
	FieldCheckboxes = "checkboxes"
	FieldDropdown   = "dropdown"
	FieldRadio      = "radio"
	FieldDate       = "date"
	FieldHidden     = "hidden"
)

// FormField is one input of a FormPage. Choices are comma separated.
type FormField struct {
	Label        string `json:"label"`
	FieldType    string `json:"field_type"`
	Required     bool   `json:"required"`
	Choices      string `json:"choices,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
	HelpText     string `json:"help_text,omitempty"`
}

// FormSubmission is one stored form post.
type FormSubmission struct {
	ID          int64
	PageID      string
	Data        map[string]string
	SubmittedAt time.Time
}

// Author is attributed on blog posts. ImageID is zero when unset.
type Author struct {
	ID      int64
	Name    string
	ImageID int64
}

// Image is an uploaded, resized asset.
type Image struct {
	ID           int64
	Title        string
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// Revision is one saved version of an editable object.
type Revision struct {
	ID         string
	ObjectType string
	ObjectID   string
	Number     int
	Content    []byte
	CreatedAt  time.Time
}

// Revisioned object types that are not pages.
const (
	FooterTextObject = "footer_text"
	footerObjectID   = "default"
)

// FooterText is the site-wide footer snippet.
type FooterText struct {
	Body                  string
	Live                  bool
	HasUnpublishedChanges bool
	LatestRevisionID      string
}

// NavigationSettings are the site-wide social links.
type NavigationSettings struct {
	InstagramURL string `json:"instagram_url"`
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}
