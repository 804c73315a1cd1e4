package pubsite

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(AdminLoginView{Site: a.site(c)}))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		a.loginLimiter.Reset(ip)
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Log.Warn().Str("ip", ip).Msg("failed admin login")
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(AdminLoginView{Site: a.site(c), ShowError: true}))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	pages, err := a.Store.ListPages(c.Request().Context())
	if err != nil {
		return err
	}
	creatable := make(map[string][]PageType, len(pages))
	hasRoot := false
	for _, p := range pages {
		if p.ParentID == "" {
			hasRoot = true
		}
		creatable[p.ID] = childTypes(p.Type)
	}
	return Render(c, a.Views.AdminDashboard(AdminDashboardView{
		Site:       a.site(c),
		Pages:      pages,
		Message:    msg,
		Creatable:  creatable,
		CanAddRoot: !hasRoot,
	}))
}

// childTypes lists the page types that may be created under parent.
func childTypes(parent PageType) []PageType {
	var out []PageType
	for _, t := range PageTypes {
		for _, allowed := range allowedParents[t] {
			if allowed == parent {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func (a *App) handleAdminAuthors(c echo.Context) error {
	return a.renderAuthors(c, http.StatusOK, "")
}

func (a *App) renderAuthors(c echo.Context, code int, errMsg string) error {
	ctx := c.Request().Context()
	authors, err := a.Store.ListAuthors(ctx)
	if err != nil {
		return err
	}
	images, err := a.Store.ListImages(ctx)
	if err != nil {
		return err
	}
	view := AdminAuthorsView{Site: a.site(c), Error: errMsg}
	for _, au := range authors {
		view.Authors = append(view.Authors, AuthorView{Author: au, Portrait: a.imageRendition(ctx, au.ImageID)})
	}
	for _, img := range images {
		view.Images = append(view.Images, ImageView{Image: img, URL: a.images.URL(img.Filename)})
	}
	return RenderStatus(c, code, a.Views.AdminAuthors(view))
}

func (a *App) handleAdminSaveAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	au := Author{Name: c.FormValue("name")}
	if v := c.FormValue("id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid author id")
		}
		au.ID = id
	}
	if v := c.FormValue("image_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
		}
		if _, err := a.Store.GetImage(ctx, id); err != nil {
			if errors.Is(err, ErrImageNotFound) {
				return a.renderAuthors(c, http.StatusUnprocessableEntity, "Select a valid image.")
			}
			return err
		}
		au.ImageID = id
	}
	if err := a.Store.SaveAuthor(ctx, &au); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return a.renderAuthors(c, http.StatusUnprocessableEntity, err.Error())
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin/authors/")
}

func (a *App) handleAdminDeleteAuthor(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid author id")
	}
	if err := a.Store.DeleteAuthor(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin/authors/")
}

func (a *App) handleAdminSettings(c echo.Context) error {
	return a.renderSettings(c, http.StatusOK, c.QueryParam("msg"), "")
}

func (a *App) renderSettings(c echo.Context, code int, msg, errMsg string) error {
	ctx := c.Request().Context()
	nav, err := a.Store.NavigationSettings(ctx)
	if err != nil {
		return err
	}
	footer, err := a.Store.FooterText(ctx)
	if err != nil {
		return err
	}
	draft, err := a.Store.FooterDraft(ctx)
	if err != nil {
		return err
	}
	return RenderStatus(c, code, a.Views.AdminSettings(AdminSettingsView{
		Site:        a.site(c),
		Navigation:  nav,
		Footer:      footer,
		FooterDraft: draft,
		Message:     msg,
		Error:       errMsg,
	}))
}

func (a *App) handleAdminSaveNavigation(c echo.Context) error {
	err := a.Store.SaveNavigationSettings(c.Request().Context(), NavigationSettings{
		InstagramURL: c.FormValue("instagram_url"),
	})
	if errors.Is(err, ErrInvalidSetting) {
		return a.renderSettings(c, http.StatusUnprocessableEntity, "", err.Error())
	}
	if err != nil {
		return err
	}
	return redirectWithMessage(c, "/admin/settings/", "Navigation saved.")
}

func (a *App) handleAdminSaveFooter(c echo.Context) error {
	ctx := c.Request().Context()
	rev, err := a.Store.SaveFooterDraft(ctx, c.FormValue("body"))
	if err != nil {
		return err
	}
	msg := "Footer draft saved."
	if c.FormValue("action") == "publish" {
		if err := a.Store.PublishRevision(ctx, rev.ID); err != nil {
			return err
		}
		msg = "Footer published."
	}
	return redirectWithMessage(c, "/admin/settings/", msg)
}

func (a *App) handleAdminUnpublishFooter(c echo.Context) error {
	if err := a.Store.Unpublish(c.Request().Context(), FooterTextObject, footerObjectID); err != nil {
		return err
	}
	return redirectWithMessage(c, "/admin/settings/", "Footer unpublished.")
}

func (a *App) handleAdminSubmissions(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := a.Store.GetPage(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if page.Type != FormPageType {
		return echo.ErrNotFound
	}
	fp, err := a.draftForm(ctx, page)
	if err != nil {
		return err
	}
	subs, err := a.Store.ListSubmissions(ctx, page.ID)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminSubmissions(AdminSubmissionsView{Site: a.site(c), Page: fp, Submissions: subs}))
}
