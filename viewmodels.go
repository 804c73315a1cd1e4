package pubsite

import (
	"github.com/a-h/templ"

	"github.com/eringen/pubsite/blocks"
)

// ViewFuncs holds the templ components the App renders. Users own every
// template; views.Default() provides a complete set.
type ViewFuncs struct {
	Home         func(HomeView) templ.Component
	BlogIndex    func(BlogIndexView) templ.Component
	BlogPost     func(BlogPostView) templ.Component
	BlogTagIndex func(TagIndexView) templ.Component
	Portfolio    func(PortfolioView) templ.Component
	Form         func(FormView) templ.Component
	FormLanding  func(FormView) templ.Component
	Search       func(SearchView) templ.Component

	AdminLogin       func(AdminLoginView) templ.Component
	AdminDashboard   func(AdminDashboardView) templ.Component
	AdminPageForm    func(AdminPageFormView) templ.Component
	AdminImages      func(AdminImagesView) templ.Component
	AdminAuthors     func(AdminAuthorsView) templ.Component
	AdminSettings    func(AdminSettingsView) templ.Component
	AdminSubmissions func(AdminSubmissionsView) templ.Component

	NotFound    func(Site) templ.Component
	ServerError func(Site) templ.Component
}

// Site is the per-request context every view receives.
type Site struct {
	Config     SiteConfig
	Meta       PageMeta
	Navigation NavigationSettings
	// Footer is the live footer as display markup.
	Footer    string
	Menu      []PageLink
	CSRFToken string
	Path      string
	IsAdmin   bool
}

// PageLink is a titled link to a page.
type PageLink struct {
	Title  string
	URL    string
	Active bool
}

type HomeView struct {
	Site  Site
	Page  HomePage
	Intro string
	Body  templ.Component
}

type BlogIndexView struct {
	Site  Site
	Page  BlogIndexPage
	Intro string
	Posts []PostSummary
}

// PostSummary is a blog post in a listing.
type PostSummary struct {
	Post  BlogPage
	URL   string
	Image *blocks.Rendition
}

type BlogPostView struct {
	Site    Site
	Post    BlogPage
	Body    string
	Authors []AuthorView
	Gallery []GalleryView
	Tags    []PageLink
	Related []PostSummary
}

type AuthorView struct {
	Author   Author
	Portrait *blocks.Rendition
}

type GalleryView struct {
	Image   blocks.Rendition
	Caption string
}

type TagIndexView struct {
	Site  Site
	Page  BlogTagIndexPage
	Tag   string
	Tags  []PageLink
	Posts []PostSummary
}

type PortfolioView struct {
	Site Site
	Page PortfolioPage
	Body templ.Component
}

type FormView struct {
	Site         Site
	Page         FormPage
	Intro        string
	ThankYouText string
	Values       map[string][]string
	Errors       FormErrors
}

type SearchView struct {
	Site    Site
	Query   string
	Results []SearchResult
}

type SearchResult struct {
	Page    Page
	URL     string
	Snippet string
}

type AdminLoginView struct {
	Site      Site
	ShowError bool
}

type AdminDashboardView struct {
	Site    Site
	Pages   []Page
	Message string
	// Creatable lists, per existing page id, the page types it accepts as children.
	Creatable  map[string][]PageType
	CanAddRoot bool
}

// AdminPageFormView drives the page editor. Stream fields are edited as JSON.
type AdminPageFormView struct {
	Site      Site
	Page      Page
	Parent    Page
	IsNew     bool
	Fields    PageFields
	Errors    []string
	Revisions []Revision
	Authors   []Author
	Policy    string
	Message   string
}

// PageFields are the editable values of any page type, as posted by the editor.
type PageFields struct {
	Title        string
	Slug         string
	Intro        string
	Body         string
	Date         string
	Tags         string
	Authors      []int64
	Gallery      string
	ThankYouText string
	FormFields   string
	FromAddress  string
	ToAddress    string
	Subject      string
}

type ImageView struct {
	Image Image
	URL   string
}

type AdminImagesView struct {
	Site   Site
	Images []ImageView
}

type AdminAuthorsView struct {
	Site    Site
	Authors []AuthorView
	Images  []ImageView
	Error   string
}

type AdminSettingsView struct {
	Site        Site
	Navigation  NavigationSettings
	Footer      FooterText
	FooterDraft string
	Message     string
	Error       string
}

type AdminSubmissionsView struct {
	Site        Site
	Page        FormPage
	Submissions []FormSubmission
}
