package pubsite

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/blocks"
)

const maxSingleLine = 255

// Key is the submission key of a field, derived from its label.
func (f FormField) Key() string {
	return strings.ReplaceAll(Slugify(f.Label), "-", "_")
}

// ChoiceList splits the comma-separated choices.
func (f FormField) ChoiceList() []string {
	return FilterEmpty(strings.Split(f.Choices, ","))
}

// FormErrors maps field keys to a message.
type FormErrors map[string]string

// CleanSubmission validates posted values against the page's fields and
// returns the cleaned data keyed by Field.Key.
func (p FormPage) CleanSubmission(values url.Values) (map[string]string, FormErrors) {
	data := make(map[string]string, len(p.Fields))
	errs := FormErrors{}
	for _, f := range p.Fields {
		key := f.Key()
		if key == "" {
			continue
		}
		v, err := cleanFormValue(f, values[key])
		if err != "" {
			errs[key] = err
			continue
		}
		data[key] = v
	}
	if len(errs) == 0 {
		errs = nil
	}
	return data, errs
}

func cleanFormValue(f FormField, raw []string) (string, string) {
	first := ""
	if len(raw) > 0 {
		first = strings.TrimSpace(raw[0])
	}

	switch f.FieldType {
	case FieldCheckbox:
		checked := first != "" && first != "false" && first != "off"
		if f.Required && !checked {
			return "", "This field is required."
		}
		return strconv.FormatBool(checked), ""
	case FieldCheckboxes:
		choices := f.ChoiceList()
		picked := FilterEmpty(raw)
		if f.Required && len(picked) == 0 {
			return "", "This field is required."
		}
		for _, v := range picked {
			if !slices.Contains(choices, v) {
				return "", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)
			}
		}
		return strings.Join(picked, ", "), ""
	}

	if first == "" {
		if f.Required {
			return "", "This field is required."
		}
		return "", ""
	}

	switch f.FieldType {
	case FieldSingleLine:
		if len([]rune(first)) > maxSingleLine {
			return "", fmt.Sprintf("Ensure this value has at most %d characters.", maxSingleLine)
		}
	case FieldEmail:
		addr, err := mail.ParseAddress(first)
		if err != nil {
			return "", "Enter a valid email address."
		}
		first = addr.Address
	case FieldNumber:
		if _, err := strconv.ParseFloat(first, 64); err != nil {
			return "", "Enter a number."
		}
	case FieldURL:
		if !blocks.ValidURL(first) {
			return "", "Enter a valid URL."
		}
	case FieldDate:
		if _, err := time.Parse("2006-01-02", first); err != nil {
			return "", "Enter a valid date."
		}
	case FieldDropdown, FieldRadio:
		if !slices.Contains(f.ChoiceList(), first) {
			return "", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", first)
		}
	}
	return first, ""
}

// validateFormFields checks a form page's field definitions at save time.
func validateFormFields(fields []FormField) []string {
	var problems []string
	seen := map[string]bool{}
	valid := []string{FieldSingleLine, FieldMultiLine, FieldEmail, FieldNumber, FieldURL, FieldCheckbox,
		FieldCheckboxes, FieldDropdown, FieldRadio, FieldDate, FieldHidden}
	for i, f := range fields {
		key := f.Key()
		switch {
		case key == "":
			problems = append(problems, fmt.Sprintf("form_fields.%d.label: this field is required", i))
		case seen[key]:
			problems = append(problems, fmt.Sprintf("form_fields.%d.label: duplicate field %q", i, f.Label))
		}
		seen[key] = true
		if !slices.Contains(valid, f.FieldType) {
			problems = append(problems, fmt.Sprintf("form_fields.%d.field_type: unknown type %q", i, f.FieldType))
			continue
		}
		switch f.FieldType {
		case FieldCheckboxes, FieldDropdown, FieldRadio:
			if len(f.ChoiceList()) == 0 {
				problems = append(problems, fmt.Sprintf("form_fields.%d.choices: choices are required", i))
			}
		}
	}
	return problems
}

// submissionEmail renders a submission in field order, one "Label: value" line each.
func (p FormPage) submissionEmail(data map[string]string) Message {
	var b strings.Builder
	for _, f := range p.Fields {
		v, ok := data[f.Key()]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Label, v)
	}
	subject := p.Subject
	if subject == "" {
		subject = p.Title
	}
	return Message{
		From:    p.FromAddress,
		To:      FilterEmpty(strings.Split(p.ToAddress, ",")),
		Subject: subject,
		Body:    b.String(),
	}
}

func (a *App) renderForm(c echo.Context, code int, fp FormPage, values url.Values, errs FormErrors) error {
	ctx := c.Request().Context()
	if values == nil {
		values = url.Values{}
		for _, f := range fp.Fields {
			if f.DefaultValue != "" {
				values.Set(f.Key(), f.DefaultValue)
			}
		}
	}
	return RenderStatus(c, code, a.Views.Form(FormView{
		Site:   a.pageSite(c, fp.Page, fp.Intro),
		Page:   fp,
		Intro:  a.expander.Expand(ctx, fp.Intro),
		Values: values,
		Errors: errs,
	}))
}

// handleFormSubmit accepts posts to live form pages. Any other POST to a
// page path is a 404.
func (a *App) handleFormSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := a.Cache.LivePage(ctx, c.Request().URL.Path)
	if errors.Is(err, ErrNotFound) || (err == nil && page.Type != FormPageType) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !a.formLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many submissions. Try again later.")
	}
	fp, err := a.Codec.FormPage(page)
	if err != nil {
		return err
	}
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form data")
	}
	data, errs := fp.CleanSubmission(values)
	if errs != nil {
		return a.renderForm(c, http.StatusOK, fp, values, errs)
	}

	sub := FormSubmission{PageID: fp.ID, Data: data}
	if err := a.Store.SaveSubmission(ctx, &sub); err != nil {
		return err
	}
	if fp.ToAddress != "" {
		if err := a.mailer.Send(ctx, fp.submissionEmail(data)); err != nil {
			a.Log.Error().Err(err).Str("page_id", fp.ID).Int64("submission_id", sub.ID).Msg("send form email")
		}
	}
	return Render(c, a.Views.FormLanding(FormView{
		Site:         a.pageSite(c, fp.Page, ""),
		Page:         fp,
		ThankYouText: a.expander.Expand(ctx, fp.ThankYouText),
	}))
}
