package views

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite"
)

func AdminLogin(v pubsite.AdminLoginView) templ.Component {
	return adminLayout(v.Site, "Log in", func(ctx context.Context, w *writer) {
		if v.ShowError {
			w.raw(`<p class="error">Invalid password.</p>`)
		}
		w.raw(`<form method="post" action="/admin/login/">`)
		csrfInput(w, v.Site.CSRFToken)
		w.raw(`<label for="password">Password</label><input type="password" id="password" name="password" autofocus required/>`)
		w.raw(`<button type="submit">Log in</button></form>`)
	})
}

func AdminDashboard(v pubsite.AdminDashboardView) templ.Component {
	return adminLayout(v.Site, "Pages", func(ctx context.Context, w *writer) {
		message(w, v.Message, "")
		if v.CanAddRoot {
			w.printf(`<p><a class="button" href="/admin/pages/new/?type=%s">Create the home page</a></p>`, pubsite.HomePageType)
		}
		w.raw(`<table class="pages"><thead><tr><th>Title</th><th>Type</th><th>Status</th><th>Add child</th></tr></thead><tbody>`)
		for _, p := range v.Pages {
			w.printf(`<tr><td style="padding-left:%dem"><a href="/admin/pages/%s/">%s</a> <small>%s</small></td>`,
				depth(p.URLPath), esc(p.ID), esc(p.Title), esc(p.URLPath))
			w.printf(`<td>%s</td><td>%s</td><td>`, esc(p.Type.Label()), statusLabel(p.Live, p.HasUnpublishedChanges))
			for _, t := range v.Creatable[p.ID] {
				w.printf(`<a href="/admin/pages/new/?type=%s&amp;parent=%s">%s</a> `, esc(string(t)), esc(p.ID), esc(t.Label()))
			}
			if p.Type == pubsite.FormPageType {
				w.printf(`<a href="/admin/pages/%s/submissions/">Submissions</a>`, esc(p.ID))
			}
			w.raw(`</td></tr>`)
		}
		w.raw(`</tbody></table>`)
	})
}

func textField(w *writer, name, label, value, help string) {
	w.printf(`<div class="field"><label for="id_%s">%s</label><input type="text" id="id_%s" name="%s" value="%s"/>`,
		name, label, name, name, esc(value))
	if help != "" {
		w.printf(`<p class="help">%s</p>`, esc(help))
	}
	w.raw(`</div>`)
}

func textArea(w *writer, name, label, value, help string, rows int) {
	w.printf(`<div class="field"><label for="id_%s">%s</label><textarea id="id_%s" name="%s" rows="%d">%s</textarea>`,
		name, label, name, name, rows, esc(value))
	if help != "" {
		w.printf(`<p class="help">%s</p>`, esc(help))
	}
	w.raw(`</div>`)
}

func AdminPageForm(v pubsite.AdminPageFormView) templ.Component {
	title := "Edit " + v.Page.Type.Label()
	if v.IsNew {
		title = "New " + v.Page.Type.Label()
	}
	return adminLayout(v.Site, title, func(ctx context.Context, w *writer) {
		f := v.Fields
		message(w, v.Message, "")
		if len(v.Errors) > 0 {
			w.raw(`<ul class="errors">`)
			for _, e := range v.Errors {
				w.printf(`<li>%s</li>`, esc(e))
			}
			w.raw(`</ul>`)
		}
		if !v.IsNew {
			w.printf(`<p>Status: %s`, statusLabel(v.Page.Live, v.Page.HasUnpublishedChanges))
			if v.Page.Live {
				w.printf(` &middot; <a href="%s">View live</a>`, esc(v.Page.URLPath))
			}
			w.raw(`</p>`)
		}

		action := "/admin/pages/" + esc(v.Page.ID) + "/"
		if v.IsNew {
			action = "/admin/pages/new/"
		}
		w.printf(`<form method="post" action="%s" class="page-form">`, action)
		csrfInput(w, v.Site.CSRFToken)
		if v.IsNew {
			w.printf(`<input type="hidden" name="type" value="%s"/><input type="hidden" name="parent" value="%s"/>`,
				esc(string(v.Page.Type)), esc(v.Page.ParentID))
			if v.Parent.ID != "" {
				w.printf(`<p>Parent: %s (%s)</p>`, esc(v.Parent.Title), esc(v.Parent.URLPath))
			}
		}
		textField(w, "title", "Title", f.Title, "")
		if v.IsNew {
			textField(w, "slug", "Slug", f.Slug, "Leave empty to derive it from the title.")
		} else {
			w.printf(`<p>Slug: <code>%s</code></p>`, esc(v.Page.Slug))
		}

		switch v.Page.Type {
		case pubsite.HomePageType:
			textArea(w, "intro", "Intro", f.Intro, "Rich text.", 4)
			streamField(w, v.Policy, f.Body)
		case pubsite.PortfolioPageType:
			streamField(w, v.Policy, f.Body)
		case pubsite.BlogIndexPageType:
			textArea(w, "intro", "Intro", f.Intro, "Rich text.", 4)
		case pubsite.BlogPageType:
			w.printf(`<div class="field"><label for="id_date">Date</label><input type="date" id="id_date" name="date" value="%s"/></div>`, esc(f.Date))
			textArea(w, "intro", "Intro", f.Intro, "Plain text, at most 250 characters.", 3)
			textArea(w, "body", "Body", f.Body, "Rich text.", 16)
			w.raw(`<div class="field"><label><input type="checkbox" name="markdown" value="on"/> Body is Markdown</label></div>`)
			textField(w, "tags", "Tags", f.Tags, "Comma separated.")
			authorPicker(w, v.Authors, f.Authors)
			textArea(w, "gallery", "Gallery", f.Gallery, `JSON list of {"image": id, "caption": "..."}.`, 6)
		case pubsite.FormPageType:
			textArea(w, "intro", "Intro", f.Intro, "Rich text.", 4)
			textArea(w, "thank_you_text", "Thank you text", f.ThankYouText, "Rich text.", 4)
			textArea(w, "form_fields", "Fields", f.FormFields,
				`JSON list of {"label", "field_type", "required", "choices", "default_value", "help_text"}.`, 10)
			textField(w, "from_address", "From address", f.FromAddress, "")
			textField(w, "to_address", "To address", f.ToAddress, "Comma separated. Leave empty to skip email.")
			textField(w, "subject", "Subject", f.Subject, "")
		}

		w.raw(`<div class="actions"><button type="submit" name="action" value="save">Save draft</button>`)
		w.raw(`<button type="submit" name="action" value="publish">Publish</button></div></form>`)

		if v.IsNew {
			return
		}
		if v.Page.Live {
			w.printf(`<form method="post" action="/admin/pages/%s/unpublish/">`, esc(v.Page.ID))
			csrfInput(w, v.Site.CSRFToken)
			w.raw(`<button type="submit">Unpublish</button></form>`)
		}
		w.printf(`<form method="post" action="/admin/pages/%s/delete/" onsubmit="return confirm('Delete this page and its children?')">`, esc(v.Page.ID))
		csrfInput(w, v.Site.CSRFToken)
		w.raw(`<button type="submit" class="danger">Delete</button></form>`)
		revisionTable(w, v.Site.CSRFToken, v.Revisions, v.Page.LiveRevisionID)
	})
}

func streamField(w *writer, policy, body string) {
	help := fmt.Sprintf(`JSON list of {"type", "value"} blocks. Allowed blocks: <a href="/admin/api/policies/%s/">%s</a>.`, esc(policy), esc(policy))
	w.printf(`<div class="field"><label for="id_body">Body</label><textarea id="id_body" name="body" rows="16" data-policy="%s">%s</textarea><p class="help">%s</p></div>`,
		esc(policy), esc(body), help)
}

func authorPicker(w *writer, authors []pubsite.Author, selected []int64) {
	if len(authors) == 0 {
		return
	}
	w.raw(`<fieldset class="field"><legend>Authors</legend>`)
	for _, a := range authors {
		checked := ""
		if slices.Contains(selected, a.ID) {
			checked = " checked"
		}
		w.printf(`<label><input type="checkbox" name="authors" value="%d"%s/> %s</label>`, a.ID, checked, esc(a.Name))
	}
	w.raw(`</fieldset>`)
}

func revisionTable(w *writer, token string, revs []pubsite.Revision, liveID string) {
	if len(revs) == 0 {
		return
	}
	w.raw(`<h2>Revisions</h2><table class="revisions"><tbody>`)
	for _, r := range revs {
		w.printf(`<tr><td>#%d</td><td>%s</td><td>`, r.Number, formatTime(r.CreatedAt))
		if r.ID == liveID {
			w.raw(`live`)
		} else {
			w.printf(`<form method="post" action="/admin/revisions/%s/publish/">`, esc(r.ID))
			csrfInput(w, token)
			w.raw(`<button type="submit">Publish</button></form>`)
		}
		w.raw(`</td></tr>`)
	}
	w.raw(`</tbody></table>`)
}

func AdminImages(v pubsite.AdminImagesView) templ.Component {
	return adminLayout(v.Site, "Images", func(ctx context.Context, w *writer) {
		w.raw(`<form method="post" action="/admin/images/" enctype="multipart/form-data">`)
		csrfInput(w, v.Site.CSRFToken)
		w.raw(`<input type="text" name="title" placeholder="Title"/><input type="file" name="image" accept="image/*" required/>`)
		w.raw(`<button type="submit">Upload</button></form><ul class="image-grid">`)
		for _, img := range v.Images {
			w.printf(`<li><img src="%s" alt="%s" loading="lazy"/><p>#%d %s <small>%dx%d</small></p>`,
				esc(img.URL), esc(img.Image.Title), img.Image.ID, esc(img.Image.Title), img.Image.Width, img.Image.Height)
			w.printf(`<form method="post" action="/admin/images/%d/delete/">`, img.Image.ID)
			csrfInput(w, v.Site.CSRFToken)
			w.raw(`<button type="submit" class="danger">Delete</button></form></li>`)
		}
		w.raw(`</ul>`)
	})
}

func imageSelect(w *writer, images []pubsite.ImageView, selected int64) {
	w.raw(`<select name="image_id"><option value="">No image</option>`)
	for _, img := range images {
		sel := ""
		if img.Image.ID == selected {
			sel = " selected"
		}
		w.printf(`<option value="%d"%s>#%d %s</option>`, img.Image.ID, sel, img.Image.ID, esc(img.Image.Title))
	}
	w.raw(`</select>`)
}

func AdminAuthors(v pubsite.AdminAuthorsView) templ.Component {
	return adminLayout(v.Site, "Authors", func(ctx context.Context, w *writer) {
		message(w, "", v.Error)
		w.raw(`<ul class="authors">`)
		for _, a := range v.Authors {
			w.raw(`<li>`)
			image(w, a.Portrait, "author-portrait")
			w.raw(`<form method="post" action="/admin/authors/">`)
			csrfInput(w, v.Site.CSRFToken)
			w.printf(`<input type="hidden" name="id" value="%d"/><input type="text" name="name" value="%s" required/>`, a.Author.ID, esc(a.Author.Name))
			imageSelect(w, v.Images, a.Author.ImageID)
			w.raw(`<button type="submit">Save</button></form>`)
			w.printf(`<form method="post" action="/admin/authors/%d/delete/">`, a.Author.ID)
			csrfInput(w, v.Site.CSRFToken)
			w.raw(`<button type="submit" class="danger">Delete</button></form></li>`)
		}
		w.raw(`</ul><h2>Add author</h2><form method="post" action="/admin/authors/">`)
		csrfInput(w, v.Site.CSRFToken)
		w.raw(`<input type="text" name="name" placeholder="Name" required/>`)
		imageSelect(w, v.Images, 0)
		w.raw(`<button type="submit">Add</button></form>`)
	})
}

func AdminSettings(v pubsite.AdminSettingsView) templ.Component {
	return adminLayout(v.Site, "Settings", func(ctx context.Context, w *writer) {
		message(w, v.Message, v.Error)
		w.raw(`<h2>Navigation</h2><form method="post" action="/admin/settings/navigation/">`)
		csrfInput(w, v.Site.CSRFToken)
		textField(w, "instagram_url", "Instagram URL", v.Navigation.InstagramURL, "")
		w.raw(`<button type="submit">Save</button></form>`)

		w.printf(`<h2>Footer</h2><p>Status: %s</p>`, statusLabel(v.Footer.Live, v.Footer.HasUnpublishedChanges))
		w.raw(`<form method="post" action="/admin/settings/footer/">`)
		csrfInput(w, v.Site.CSRFToken)
		textArea(w, "body", "Footer text", v.FooterDraft, "Rich text.", 6)
		w.raw(`<div class="actions"><button type="submit" name="action" value="save">Save draft</button>`)
		w.raw(`<button type="submit" name="action" value="publish">Publish</button></div></form>`)
		if v.Footer.Live {
			w.raw(`<form method="post" action="/admin/settings/footer/unpublish/">`)
			csrfInput(w, v.Site.CSRFToken)
			w.raw(`<button type="submit">Unpublish footer</button></form>`)
		}
	})
}

func AdminSubmissions(v pubsite.AdminSubmissionsView) templ.Component {
	return adminLayout(v.Site, "Submissions: "+v.Page.Title, func(ctx context.Context, w *writer) {
		if len(v.Submissions) == 0 {
			w.raw(`<p class="empty">No submissions yet.</p>`)
			return
		}
		var keys, labels []string
		for _, f := range v.Page.Fields {
			keys = append(keys, f.Key())
			labels = append(labels, esc(f.Label))
		}
		// Keys from fields that were since removed still show, after the current ones.
		extra := map[string]bool{}
		for _, s := range v.Submissions {
			for k := range s.Data {
				if !slices.Contains(keys, k) {
					extra[k] = true
				}
			}
		}
		var extraKeys []string
		for k := range extra {
			extraKeys = append(extraKeys, k)
		}
		sort.Strings(extraKeys)
		for _, k := range extraKeys {
			keys = append(keys, k)
			labels = append(labels, esc(k))
		}

		w.printf(`<table class="submissions"><thead><tr><th>Submitted</th><th>%s</th></tr></thead><tbody>`, strings.Join(labels, "</th><th>"))
		for _, s := range v.Submissions {
			w.printf(`<tr><td>%s</td>`, formatTime(s.SubmittedAt))
			for _, k := range keys {
				w.printf(`<td>%s</td>`, esc(s.Data[k]))
			}
			w.raw(`</tr>`)
		}
		w.raw(`</tbody></table>`)
	})
}
