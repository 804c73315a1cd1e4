package pubsite

import (
	"context"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
)

func contactForm() FormPage {
	return FormPage{
		Page: Page{Title: "Contact"},
		Fields: []FormField{
			{Label: "Your name", FieldType: FieldSingleLine, Required: true},
			{Label: "Email", FieldType: FieldEmail, Required: true},
			{Label: "Age", FieldType: FieldNumber},
			{Label: "Website", FieldType: FieldURL},
			{Label: "Topic", FieldType: FieldDropdown, Choices: "sales, support"},
			{Label: "Channels", FieldType: FieldCheckboxes, Choices: "mail,phone"},
			{Label: "Subscribe", FieldType: FieldCheckbox},
			{Label: "When", FieldType: FieldDate},
		},
		ToAddress: "a@example.com, b@example.com",
	}
}

func TestFieldKey(t *testing.T) {
	if got := (FormField{Label: "Your name"}).Key(); got != "your_name" {
		t.Errorf("Key() = %q, want your_name", got)
	}
	if got := (FormField{Label: "sales, support,"}).ChoiceList(); len(got) != 2 || got[1] != "support" {
		t.Errorf("ChoiceList() = %v", got)
	}
}

func TestCleanSubmission(t *testing.T) {
	fp := contactForm()
	values := url.Values{
		"your_name": {"  Ada  "},
		"email":     {"Ada <ada@example.com>"},
		"age":       {"36"},
		"website":   {"https://example.com"},
		"topic":     {"support"},
		"channels":  {"mail", "phone"},
		"subscribe": {"on"},
		"when":      {"2024-03-01"},
	}
	data, errs := fp.CleanSubmission(values)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := map[string]string{
		"your_name": "Ada",
		"email":     "ada@example.com",
		"age":       "36",
		"website":   "https://example.com",
		"topic":     "support",
		"channels":  "mail, phone",
		"subscribe": "true",
		"when":      "2024-03-01",
	}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("data[%s] = %q, want %q", k, data[k], v)
		}
	}
}

func TestCleanSubmissionErrors(t *testing.T) {
	fp := contactForm()
	values := url.Values{
		"email":    {"not-an-address"},
		"age":      {"old"},
		"website":  {"javascript:alert(1)"},
		"topic":    {"billing"},
		"channels": {"fax"},
		"when":     {"01/03/2024"},
	}
	data, errs := fp.CleanSubmission(values)
	for _, key := range []string{"your_name", "email", "age", "website", "topic", "channels", "when"} {
		if errs[key] == "" {
			t.Errorf("expected an error for %s", key)
		}
	}
	if errs["subscribe"] != "" {
		t.Errorf("optional checkbox should not fail: %q", errs["subscribe"])
	}
	if data["subscribe"] != "false" {
		t.Errorf("unchecked checkbox = %q, want false", data["subscribe"])
	}
	if _, ok := data["email"]; ok {
		t.Error("invalid values should not be in the cleaned data")
	}
}

func TestValidateFormFields(t *testing.T) {
	problems := validateFormFields([]FormField{
		{Label: "Name", FieldType: FieldSingleLine},
		{Label: "name", FieldType: FieldMultiLine},
		{Label: "", FieldType: FieldEmail},
		{Label: "Colour", FieldType: "colour"},
		{Label: "Pick", FieldType: FieldRadio},
	})
	if len(problems) != 4 {
		t.Fatalf("problems = %v, want 4", problems)
	}
	for i, want := range []string{"duplicate", "form_fields.2.label", "unknown type", "choices are required"} {
		if !strings.Contains(problems[i], want) {
			t.Errorf("problems[%d] = %q, want it to mention %q", i, problems[i], want)
		}
	}
	if problems := validateFormFields(contactForm().Fields); problems != nil {
		t.Errorf("valid fields reported problems: %v", problems)
	}
}

func TestSubmissionEmail(t *testing.T) {
	fp := contactForm()
	msg := fp.submissionEmail(map[string]string{"email": "ada@example.com", "your_name": "Ada"})
	if msg.Subject != "Contact" {
		t.Errorf("Subject = %q, want the page title", msg.Subject)
	}
	if len(msg.To) != 2 || msg.To[1] != "b@example.com" {
		t.Errorf("To = %v", msg.To)
	}
	if msg.Body != "Your name: Ada\nEmail: ada@example.com\n" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestSMTPMailer(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.example.com", Port: 2525, From: "site@example.com"})
	var gotAddr, gotFrom string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, _ []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg = addr, from, msg
		return nil
	}
	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi\r\nBcc: x", Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAddr != "mail.example.com:2525" || gotFrom != "site@example.com" {
		t.Errorf("addr/from = %s/%s", gotAddr, gotFrom)
	}
	raw := string(gotMsg)
	if strings.Contains(raw, "\r\nBcc:") {
		t.Error("header injection not neutralized")
	}
	if !strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2") {
		t.Errorf("body not CRLF encoded: %q", raw)
	}

	if err := m.Send(context.Background(), Message{}); err == nil {
		t.Error("message without recipients should fail")
	}
}
