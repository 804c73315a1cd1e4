package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field is one node of a block schema. Clean turns authored or stored input into
// its normalized value, or returns ValidationErrors with paths relative to the field.
type Field interface {
	Name() string
	IsRequired() bool
	Clean(vc *ValidationContext, raw any) (any, error)
	Schema() FieldSchema
}

// ImageChecker confirms that a referenced image exists in the asset store.
type ImageChecker interface {
	ImageExists(ctx context.Context, ref ImageRef) (bool, error)
}

// ValidationContext carries what a validation pass may consult besides the input.
// A nil Images checker skips existence checks, which is how stored data is parsed.
type ValidationContext struct {
	Ctx    context.Context
	Images ImageChecker
}

func (vc *ValidationContext) context() context.Context {
	if vc == nil || vc.Ctx == nil {
		return context.Background()
	}
	return vc.Ctx
}

// FieldSchema describes a field for editor tooling.
type FieldSchema struct {
	Name      string        `json:"name,omitempty"`
	Kind      string        `json:"kind"`
	Required  bool          `json:"required"`
	MaxLength int           `json:"max_length,omitempty"`
	Choices   []Choice      `json:"choices,omitempty"`
	HelpText  string        `json:"help_text,omitempty"`
	Children  []FieldSchema `json:"children,omitempty"`
}

// Choice is one allowed value of a ChoiceBlock.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

const msgRequired = "this field is required"

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
}

// CharBlock is a single line of plain text.
type CharBlock struct {
	FieldName string
	Required  bool
	MaxLength int
	HelpText  string
}

func (f CharBlock) Name() string     { return f.FieldName }
func (f CharBlock) IsRequired() bool { return f.Required }

func (f CharBlock) Clean(_ *ValidationContext, raw any) (any, error) {
	s, err := asString(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if f.Required {
			return nil, invalid(msgRequired)
		}
		return "", nil
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return nil, invalid("ensure this value has at most %d characters", f.MaxLength)
	}
	return s, nil
}

func (f CharBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "char", Required: f.Required, MaxLength: f.MaxLength, HelpText: f.HelpText}
}

// ChoiceBlock is a string restricted to a closed set of values. The empty string
// is accepted when the field is optional and means "no choice".
type ChoiceBlock struct {
	FieldName string
	Required  bool
	Choices   []Choice
	HelpText  string
}

func (f ChoiceBlock) Name() string     { return f.FieldName }
func (f ChoiceBlock) IsRequired() bool { return f.Required }

func (f ChoiceBlock) Clean(_ *ValidationContext, raw any) (any, error) {
	s, err := asString(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if s == "" {
		if f.Required {
			return nil, invalid(msgRequired)
		}
		return "", nil
	}
	for _, c := range f.Choices {
		if c.Value == s {
			return s, nil
		}
	}
	return nil, invalid("select a valid choice; %q is not one of the available choices", s)
}

func (f ChoiceBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "choice", Required: f.Required, Choices: f.Choices, HelpText: f.HelpText}
}

// RichTextBlock holds rich text markup. The markup is stored as authored.
type RichTextBlock struct {
	FieldName string
	Required  bool
	HelpText  string
}

func (f RichTextBlock) Name() string     { return f.FieldName }
func (f RichTextBlock) IsRequired() bool { return f.Required }

func (f RichTextBlock) Clean(_ *ValidationContext, raw any) (any, error) {
	s, err := asString(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if f.Required && strings.TrimSpace(s) == "" {
		return nil, invalid(msgRequired)
	}
	return s, nil
}

func (f RichTextBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "richtext", Required: f.Required, HelpText: f.HelpText}
}

// ImageBlock references a stored image by id.
type ImageBlock struct {
	FieldName string
	Required  bool
	HelpText  string
}

func (f ImageBlock) Name() string     { return f.FieldName }
func (f ImageBlock) IsRequired() bool { return f.Required }

func (f ImageBlock) Clean(vc *ValidationContext, raw any) (any, error) {
	ref, err := toImageRef(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if ref.IsZero() {
		if f.Required {
			return nil, invalid(msgRequired)
		}
		return ImageRef{}, nil
	}
	if vc != nil && vc.Images != nil {
		ok, err := vc.Images.ImageExists(vc.context(), ref)
		if err != nil {
			return nil, invalid("could not verify image %d: %v", ref.ID, err)
		}
		if !ok {
			return nil, invalid("image %d does not exist", ref.ID)
		}
	}
	return ref, nil
}

func (f ImageBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "image", Required: f.Required, HelpText: f.HelpText}
}

func toImageRef(raw any) (ImageRef, error) {
	switch v := raw.(type) {
	case nil:
		return ImageRef{}, nil
	case ImageRef:
		return v, nil
	case int:
		return positiveRef(int64(v))
	case int64:
		return positiveRef(v)
	case float64:
		if v != math.Trunc(v) {
			return ImageRef{}, fmt.Errorf("image id must be an integer")
		}
		return positiveRef(int64(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return ImageRef{}, fmt.Errorf("image id must be an integer")
		}
		return positiveRef(n)
	case string:
		if strings.TrimSpace(v) == "" {
			return ImageRef{}, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return ImageRef{}, fmt.Errorf("image id must be an integer")
		}
		return positiveRef(n)
	default:
		return ImageRef{}, fmt.Errorf("expected an image id, got %T", raw)
	}
}

func positiveRef(id int64) (ImageRef, error) {
	if id < 0 {
		return ImageRef{}, fmt.Errorf("image id must be positive")
	}
	return ImageRef{ID: id}, nil
}

// URLBlock is an absolute http or https URL. It is not dereferenced at validation time.
type URLBlock struct {
	FieldName string
	Required  bool
	HelpText  string
}

func (f URLBlock) Name() string     { return f.FieldName }
func (f URLBlock) IsRequired() bool { return f.Required }

func (f URLBlock) Clean(_ *ValidationContext, raw any) (any, error) {
	s, err := asString(raw)
	if err != nil {
		return nil, invalid("%v", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if f.Required {
			return nil, invalid(msgRequired)
		}
		return "", nil
	}
	if !ValidURL(s) {
		return nil, invalid("enter a valid URL")
	}
	return s, nil
}

func (f URLBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "url", Required: f.Required, HelpText: f.HelpText}
}

// ValidURL reports whether s is a syntactically valid absolute http(s) URL.
func ValidURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return u.Host != "" && !strings.ContainsAny(u.Host, " \t")
}

// StructBlock groups named sub-fields, each validated independently.
// Keys not declared as children are rejected.
type StructBlock struct {
	FieldName string
	Children  []Field
}

func (f StructBlock) Name() string     { return f.FieldName }
func (f StructBlock) IsRequired() bool { return true }

func (f StructBlock) Clean(vc *ValidationContext, raw any) (any, error) {
	var in map[string]any
	switch v := raw.(type) {
	case nil:
		in = map[string]any{}
	case map[string]any:
		in = v
	case StructValue:
		in = v
	default:
		return nil, invalid("expected an object, got %T", raw)
	}

	var errs ValidationErrors
	out := make(StructValue, len(f.Children))
	known := make(map[string]struct{}, len(f.Children))
	for _, child := range f.Children {
		known[child.Name()] = struct{}{}
		v, err := child.Clean(vc, in[child.Name()])
		if err != nil {
			errs = append(errs, nest(child.Name(), err)...)
			continue
		}
		out[child.Name()] = v
	}
	for key := range in {
		if _, ok := known[key]; !ok {
			errs = append(errs, &ValidationError{Index: -1, Field: key, Reason: "unknown field"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (f StructBlock) Schema() FieldSchema {
	s := FieldSchema{Name: f.FieldName, Kind: "struct", Required: true}
	for _, c := range f.Children {
		s.Children = append(s.Children, c.Schema())
	}
	return s
}

// ListBlock is an ordered list of values of one child field.
type ListBlock struct {
	FieldName string
	Child     Field
	MinNum    int
	MaxNum    int
}

func (f ListBlock) Name() string     { return f.FieldName }
func (f ListBlock) IsRequired() bool { return f.MinNum > 0 }

func (f ListBlock) Clean(vc *ValidationContext, raw any) (any, error) {
	var in []any
	switch v := raw.(type) {
	case nil:
	case []any:
		in = v
	default:
		return nil, invalid("expected a list, got %T", raw)
	}
	if f.MinNum > 0 && len(in) < f.MinNum {
		return nil, invalid("the minimum number of items is %d", f.MinNum)
	}
	if f.MaxNum > 0 && len(in) > f.MaxNum {
		return nil, invalid("the maximum number of items is %d", f.MaxNum)
	}

	var errs ValidationErrors
	out := make([]any, 0, len(in))
	for i, item := range in {
		v, err := f.Child.Clean(vc, item)
		if err != nil {
			errs = append(errs, nest(strconv.Itoa(i), err)...)
			continue
		}
		out = append(out, v)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (f ListBlock) Schema() FieldSchema {
	return FieldSchema{Name: f.FieldName, Kind: "list", Required: f.MinNum > 0, Children: []FieldSchema{f.Child.Schema()}}
}
