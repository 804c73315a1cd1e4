package pubsite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/blocks"
	"github.com/eringen/pubsite/richtext"
)

const (
	maxIntroLength   = 250
	maxCaptionLength = 250
)

// draftContent returns the newest editable version of a page: its latest
// revision, or the live content when it has none.
func (a *App) draftContent(ctx context.Context, p Page) (string, []byte, error) {
	if p.LatestRevisionID == "" {
		return p.Title, p.Content, nil
	}
	rev, err := a.Store.GetRevision(ctx, p.LatestRevisionID)
	if err != nil {
		return "", nil, err
	}
	doc, err := decodeRevision(rev.Content)
	if err != nil {
		return "", nil, err
	}
	title := doc.Title
	if title == "" {
		title = p.Title
	}
	return title, doc.Content, nil
}

func (a *App) draftForm(ctx context.Context, p Page) (FormPage, error) {
	title, content, err := a.draftContent(ctx, p)
	if err != nil {
		return FormPage{}, err
	}
	p.Title, p.Content = title, content
	return a.Codec.FormPage(p)
}

// fieldsFromContent fills the editor from a stored document.
func fieldsFromContent(t PageType, title, slug string, content []byte) (PageFields, error) {
	f := PageFields{Title: title, Slug: slug}
	if len(content) == 0 {
		return f, nil
	}
	switch t {
	case HomePageType:
		var doc homeDoc
		if err := unmarshalDoc(content, &doc); err != nil {
			return f, err
		}
		f.Intro, f.Body = doc.Intro, indentJSON(doc.Body)
	case BlogIndexPageType:
		var doc blogIndexDoc
		if err := unmarshalDoc(content, &doc); err != nil {
			return f, err
		}
		f.Intro = doc.Intro
	case BlogPageType:
		var doc blogDoc
		if err := unmarshalDoc(content, &doc); err != nil {
			return f, err
		}
		f.Date, f.Intro, f.Body = doc.Date, doc.Intro, doc.Body
		f.Tags = JoinTags(doc.Tags)
		f.Authors = doc.Authors
		if len(doc.Gallery) > 0 {
			raw, _ := json.MarshalIndent(doc.Gallery, "", "  ")
			f.Gallery = string(raw)
		}
	case PortfolioPageType:
		var doc portfolioDoc
		if err := unmarshalDoc(content, &doc); err != nil {
			return f, err
		}
		f.Body = indentJSON(doc.Body)
	case FormPageType:
		var doc formDoc
		if err := unmarshalDoc(content, &doc); err != nil {
			return f, err
		}
		f.Intro, f.ThankYouText = doc.Intro, doc.ThankYouText
		f.FromAddress, f.ToAddress, f.Subject = doc.FromAddress, doc.ToAddress, doc.Subject
		if len(doc.Fields) > 0 {
			raw, _ := json.MarshalIndent(doc.Fields, "", "  ")
			f.FormFields = string(raw)
		}
	}
	return f, nil
}

func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func parsePageFields(c echo.Context) (PageFields, error) {
	f := PageFields{
		Title:        strings.TrimSpace(c.FormValue("title")),
		Slug:         strings.TrimSpace(c.FormValue("slug")),
		Intro:        c.FormValue("intro"),
		Body:         c.FormValue("body"),
		Date:         strings.TrimSpace(c.FormValue("date")),
		Tags:         c.FormValue("tags"),
		Gallery:      c.FormValue("gallery"),
		ThankYouText: c.FormValue("thank_you_text"),
		FormFields:   c.FormValue("form_fields"),
		FromAddress:  strings.TrimSpace(c.FormValue("from_address")),
		ToAddress:    strings.TrimSpace(c.FormValue("to_address")),
		Subject:      strings.TrimSpace(c.FormValue("subject")),
	}
	params, err := c.FormParams()
	if err != nil {
		return f, err
	}
	for _, v := range params["authors"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid author id %q", v)
		}
		f.Authors = append(f.Authors, id)
	}
	if c.FormValue("markdown") != "" && f.Body != "" {
		html, err := richtext.FromMarkdown([]byte(f.Body))
		if err != nil {
			return f, err
		}
		f.Body = html
	}
	return f, nil
}

// errorMessages flattens validation output for the editor.
func errorMessages(prefix string, err error) []string {
	var ves blocks.ValidationErrors
	if errors.As(err, &ves) {
		out := make([]string, len(ves))
		for i, ve := range ves {
			out[i] = prefix + ": " + ve.Error()
		}
		return out
	}
	return []string{prefix + ": " + err.Error()}
}

// buildContent validates editor fields and encodes the page document.
// Problems are returned for the editor; err is reserved for failures.
func (a *App) buildContent(ctx context.Context, t PageType, f PageFields) ([]byte, []string, error) {
	var problems []string
	if f.Title == "" {
		problems = append(problems, "title: this field is required")
	}

	switch t {
	case HomePageType, PortfolioPageType:
		policy, _ := policyFor(t)
		reg, err := a.Catalog.Registry(policy)
		if err != nil {
			return nil, nil, err
		}
		body, err := reg.WithImageChecker(a.Store).ValidateStream(ctx, []byte(f.Body))
		if err != nil {
			return nil, append(problems, errorMessages("body", err)...), nil
		}
		if len(problems) > 0 {
			return nil, problems, nil
		}
		var content []byte
		if t == HomePageType {
			content, err = EncodeHome(f.Intro, body)
		} else {
			content, err = EncodePortfolio(body)
		}
		return content, nil, err

	case BlogIndexPageType:
		if len(problems) > 0 {
			return nil, problems, nil
		}
		content, err := EncodeBlogIndex(f.Intro)
		return content, nil, err

	case BlogPageType:
		post := BlogPage{Date: f.Date, Intro: strings.TrimSpace(f.Intro), Body: f.Body, AuthorIDs: f.Authors}
		post.Tags = ParseTags(f.Tags)
		if post.Date == "" {
			problems = append(problems, "date: this field is required")
		} else if _, err := time.Parse("2006-01-02", post.Date); err != nil {
			problems = append(problems, "date: use YYYY-MM-DD")
		}
		switch n := utf8.RuneCountInString(post.Intro); {
		case n == 0:
			problems = append(problems, "intro: this field is required")
		case n > maxIntroLength:
			problems = append(problems, fmt.Sprintf("intro: ensure this value has at most %d characters (it has %d)", maxIntroLength, n))
		}
		for _, id := range post.AuthorIDs {
			if _, err := a.Store.GetAuthor(ctx, id); errors.Is(err, ErrNotFound) {
				problems = append(problems, fmt.Sprintf("authors: author %d does not exist", id))
			} else if err != nil {
				return nil, nil, err
			}
		}
		gallery, galleryProblems, err := a.parseGallery(ctx, f.Gallery)
		if err != nil {
			return nil, nil, err
		}
		problems = append(problems, galleryProblems...)
		post.GalleryImages = gallery
		if len(problems) > 0 {
			return nil, problems, nil
		}
		content, err := EncodeBlog(post)
		return content, nil, err

	case BlogTagIndexPageType:
		if len(problems) > 0 {
			return nil, problems, nil
		}
		return []byte("{}"), nil, nil

	case FormPageType:
		fp := FormPage{
			Intro:        f.Intro,
			ThankYouText: f.ThankYouText,
			FromAddress:  f.FromAddress,
			ToAddress:    f.ToAddress,
			Subject:      f.Subject,
		}
		if strings.TrimSpace(f.FormFields) != "" {
			if err := json.Unmarshal([]byte(f.FormFields), &fp.Fields); err != nil {
				problems = append(problems, "form_fields: "+err.Error())
			}
		}
		problems = append(problems, validateFormFields(fp.Fields)...)
		if fp.FromAddress != "" {
			if _, err := mail.ParseAddress(fp.FromAddress); err != nil {
				problems = append(problems, "from_address: enter a valid email address")
			}
		}
		for _, to := range FilterEmpty(strings.Split(fp.ToAddress, ",")) {
			if _, err := mail.ParseAddress(to); err != nil {
				problems = append(problems, fmt.Sprintf("to_address: %q is not a valid email address", to))
			}
		}
		if len(problems) > 0 {
			return nil, problems, nil
		}
		content, err := EncodeForm(fp)
		return content, nil, err
	}
	return nil, nil, fmt.Errorf("unknown page type %q", t)
}

func (a *App) parseGallery(ctx context.Context, raw string) ([]GalleryImage, []string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, nil
	}
	var items []GalleryImage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, []string{"gallery: " + err.Error()}, nil
	}
	var problems []string
	for i, g := range items {
		ok, err := a.Store.ImageExists(ctx, blocks.ImageRef{ID: g.ImageID})
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			problems = append(problems, fmt.Sprintf("gallery.%d.image: image %d does not exist", i, g.ImageID))
		}
		if utf8.RuneCountInString(g.Caption) > maxCaptionLength {
			problems = append(problems, fmt.Sprintf("gallery.%d.caption: ensure this value has at most %d characters", i, maxCaptionLength))
		}
	}
	return items, problems, nil
}

func (a *App) pageForm(c echo.Context, code int, view AdminPageFormView) error {
	ctx := c.Request().Context()
	authors, err := a.Store.ListAuthors(ctx)
	if err != nil {
		return err
	}
	view.Site = a.site(c)
	view.Authors = authors
	view.Policy, _ = policyFor(view.Page.Type)
	if view.Message == "" {
		view.Message = c.QueryParam("msg")
	}
	return RenderStatus(c, code, a.Views.AdminPageForm(view))
}

func (a *App) handleAdminNewPage(c echo.Context) error {
	ctx := c.Request().Context()
	t := PageType(c.QueryParam("type"))
	if _, ok := allowedParents[t]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown page type")
	}
	view := AdminPageFormView{Page: Page{Type: t}, IsNew: true}
	if parentID := c.QueryParam("parent"); parentID != "" {
		parent, err := a.Store.GetPage(ctx, parentID)
		if err != nil {
			return err
		}
		view.Parent = parent
		view.Page.ParentID = parent.ID
	}
	return a.pageForm(c, http.StatusOK, view)
}

func (a *App) handleAdminCreatePage(c echo.Context) error {
	ctx := c.Request().Context()
	t := PageType(c.FormValue("type"))
	if _, ok := allowedParents[t]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown page type")
	}
	fields, err := parsePageFields(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	page := Page{Type: t, ParentID: c.FormValue("parent"), Title: fields.Title, Slug: fields.Slug}
	view := AdminPageFormView{Page: page, IsNew: true, Fields: fields}
	if page.ParentID != "" {
		if parent, err := a.Store.GetPage(ctx, page.ParentID); err == nil {
			view.Parent = parent
		}
	}

	content, problems, err := a.buildContent(ctx, t, fields)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		view.Errors = problems
		return a.pageForm(c, http.StatusUnprocessableEntity, view)
	}
	rev, err := a.Store.CreateDraftPage(ctx, &page, fields.Title, content)
	if err != nil {
		if errors.Is(err, ErrInvalidParent) || errors.Is(err, ErrSlugTaken) || errors.Is(err, ErrInvalidPage) {
			view.Errors = []string{err.Error()}
			return a.pageForm(c, http.StatusUnprocessableEntity, view)
		}
		return err
	}
	return a.afterSave(c, page, rev, "Page created.")
}

func (a *App) handleAdminEditPage(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := a.Store.GetPage(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	title, content, err := a.draftContent(ctx, page)
	if err != nil {
		return err
	}
	fields, err := fieldsFromContent(page.Type, title, page.Slug, content)
	if err != nil {
		return err
	}
	revs, err := a.Store.ListRevisions(ctx, PageObject, page.ID)
	if err != nil {
		return err
	}
	return a.pageForm(c, http.StatusOK, AdminPageFormView{Page: page, Fields: fields, Revisions: revs})
}

func (a *App) handleAdminSavePage(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := a.Store.GetPage(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	fields, err := parsePageFields(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fields.Slug = page.Slug
	content, problems, err := a.buildContent(ctx, page.Type, fields)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		revs, err := a.Store.ListRevisions(ctx, PageObject, page.ID)
		if err != nil {
			return err
		}
		return a.pageForm(c, http.StatusUnprocessableEntity, AdminPageFormView{
			Page: page, Fields: fields, Errors: problems, Revisions: revs,
		})
	}
	return a.saveDraft(c, page, fields.Title, content, "Draft saved.")
}

// saveDraft stores a revision and publishes it when the editor asked to.
func (a *App) saveDraft(c echo.Context, page Page, title string, content []byte, msg string) error {
	ctx := c.Request().Context()
	rev, err := a.Store.SaveRevision(ctx, PageObject, page.ID, title, content)
	if err != nil {
		return err
	}
	return a.afterSave(c, page, rev, msg)
}

// afterSave publishes rev when the form asked for it.
func (a *App) afterSave(c echo.Context, page Page, rev Revision, msg string) error {
	ctx := c.Request().Context()
	if c.FormValue("action") == "publish" {
		if err := a.Store.PublishRevision(ctx, rev.ID); err != nil {
			return err
		}
		a.Cache.Invalidate()
		msg = "Page published."
	}
	a.Log.Info().Str("page_id", page.ID).Int("revision", rev.Number).Str("action", c.FormValue("action")).Msg("page saved")
	return redirectWithMessage(c, "/admin/pages/"+page.ID+"/", msg)
}

func (a *App) handleAdminUnpublish(c echo.Context) error {
	id := c.Param("id")
	if err := a.Store.Unpublish(c.Request().Context(), PageObject, id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return redirectWithMessage(c, "/admin/pages/"+id+"/", "Page unpublished.")
}

func (a *App) handleAdminDeletePage(c echo.Context) error {
	if err := a.Store.DeletePage(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return redirectWithMessage(c, "/admin/", "Page deleted.")
}

func (a *App) handleAdminPublishRevision(c echo.Context) error {
	ctx := c.Request().Context()
	rev, err := a.Store.GetRevision(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := a.Store.PublishRevision(ctx, rev.ID); err != nil {
		return err
	}
	a.Cache.Invalidate()
	if rev.ObjectType == PageObject {
		return redirectWithMessage(c, "/admin/pages/"+rev.ObjectID+"/", fmt.Sprintf("Revision %d published.", rev.Number))
	}
	return redirectWithMessage(c, "/admin/settings/", fmt.Sprintf("Revision %d published.", rev.Number))
}
