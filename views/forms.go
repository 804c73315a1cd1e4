package views

import (
	"context"
	"slices"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite"
)

func first(values map[string][]string, key string) string {
	if vs := values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

var inputTypes = map[string]string{
	pubsite.FieldSingleLine: "text",
	pubsite.FieldEmail:      "email",
	pubsite.FieldNumber:     "number",
	pubsite.FieldURL:        "url",
	pubsite.FieldDate:       "date",
	pubsite.FieldHidden:     "hidden",
}

func formField(w *writer, f pubsite.FormField, values map[string][]string, errMsg string) {
	key := f.Key()
	value := first(values, key)
	required := ""
	if f.Required {
		required = " required"
	}
	if f.FieldType == pubsite.FieldHidden {
		w.printf(`<input type="hidden" name="%s" value="%s"/>`, esc(key), esc(value))
		return
	}

	w.printf(`<div class="field field-%s">`, esc(f.FieldType))
	if f.FieldType != pubsite.FieldCheckbox {
		w.printf(`<label for="id_%s">%s</label>`, esc(key), esc(f.Label))
	}
	switch f.FieldType {
	case pubsite.FieldMultiLine:
		w.printf(`<textarea id="id_%s" name="%s"%s>%s</textarea>`, esc(key), esc(key), required, esc(value))
	case pubsite.FieldCheckbox:
		checked := ""
		if value != "" && value != "false" && value != "off" {
			checked = " checked"
		}
		w.printf(`<label><input type="checkbox" id="id_%s" name="%s" value="on"%s%s/> %s</label>`,
			esc(key), esc(key), checked, required, esc(f.Label))
	case pubsite.FieldCheckboxes:
		for _, c := range f.ChoiceList() {
			checked := ""
			if slices.Contains(values[key], c) {
				checked = " checked"
			}
			w.printf(`<label><input type="checkbox" name="%s" value="%s"%s/> %s</label>`, esc(key), esc(c), checked, esc(c))
		}
	case pubsite.FieldRadio:
		for _, c := range f.ChoiceList() {
			checked := ""
			if value == c {
				checked = " checked"
			}
			w.printf(`<label><input type="radio" name="%s" value="%s"%s%s/> %s</label>`, esc(key), esc(c), checked, required, esc(c))
		}
	case pubsite.FieldDropdown:
		w.printf(`<select id="id_%s" name="%s"%s><option value="">---------</option>`, esc(key), esc(key), required)
		for _, c := range f.ChoiceList() {
			selected := ""
			if value == c {
				selected = " selected"
			}
			w.printf(`<option value="%s"%s>%s</option>`, esc(c), selected, esc(c))
		}
		w.raw(`</select>`)
	default:
		typ, ok := inputTypes[f.FieldType]
		if !ok {
			typ = "text"
		}
		w.printf(`<input type="%s" id="id_%s" name="%s" value="%s"%s/>`, typ, esc(key), esc(key), esc(value), required)
	}
	if f.HelpText != "" {
		w.printf(`<p class="help">%s</p>`, esc(f.HelpText))
	}
	if errMsg != "" {
		w.printf(`<p class="error">%s</p>`, esc(errMsg))
	}
	w.raw(`</div>`)
}

func Form(v pubsite.FormView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.printf(`<section class="form-page"><h1>%s</h1>`, esc(v.Page.Title))
		if v.Intro != "" {
			w.printf(`<div class="intro">%s</div>`, v.Intro)
		}
		if len(v.Errors) > 0 {
			w.raw(`<p class="error">Please correct the errors below.</p>`)
		}
		w.printf(`<form method="post" action="%s">`, esc(v.Page.URLPath))
		csrfInput(w, v.Site.CSRFToken)
		for _, f := range v.Page.Fields {
			formField(w, f, v.Values, v.Errors[f.Key()])
		}
		w.raw(`<button type="submit">Submit</button></form></section>`)
	})
}

func FormLanding(v pubsite.FormView) templ.Component {
	return layout(v.Site, func(ctx context.Context, w *writer) {
		w.printf(`<section class="form-page"><h1>%s</h1>`, esc(v.Page.Title))
		if v.ThankYouText != "" {
			w.printf(`<div class="thank-you">%s</div>`, v.ThankYouText)
		} else {
			w.raw(`<p>Thank you for your submission.</p>`)
		}
		w.raw(`</section>`)
	})
}
