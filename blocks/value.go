package blocks

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is the typed payload of a Block. The set of implementations is closed.
type Value interface {
	encode() any
}

// ImageRef points at an image in the asset store. The zero value means "no image".
type ImageRef struct {
	ID int64
}

func (r ImageRef) IsZero() bool { return r.ID == 0 }

func (r ImageRef) String() string { return strconv.FormatInt(r.ID, 10) }

func (r ImageRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(r.ID, 10)), nil
}

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*r = ImageRef{}
		return nil
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// HeadingSize is the optional HTML heading level of a Heading block.
type HeadingSize string

const (
	SizeDefault HeadingSize = ""
	SizeH2      HeadingSize = "h2"
	SizeH3      HeadingSize = "h3"
	SizeH4      HeadingSize = "h4"
)

// Element returns the HTML element used to render the heading.
func (s HeadingSize) Element() string {
	if s == SizeDefault {
		return "h2"
	}
	return string(s)
}

type Heading struct {
	Text string
	Size HeadingSize
}

func (v Heading) encode() any {
	return map[string]any{"heading_text": v.Text, "size": string(v.Size)}
}

// Paragraph holds rich text markup.
type Paragraph struct {
	HTML string
}

func (v Paragraph) encode() any { return v.HTML }

type CaptionedImage struct {
	Image       ImageRef
	Caption     string
	Attribution string
}

func (v CaptionedImage) encode() any {
	return map[string]any{"image": v.Image, "caption": v.Caption, "attribution": v.Attribution}
}

// Embed stores the author's URL verbatim. Resolution happens only at render time.
type Embed struct {
	URL string
}

func (v Embed) encode() any { return v.URL }

// Card is a headed grid of image cards.
type Card struct {
	Heading string
	Text    string
	Cards   []CardItem
}

type CardItem struct {
	Image ImageRef
	Title string
	Text  string
	Link  string
}

func (v Card) encode() any {
	items := make([]any, 0, len(v.Cards))
	for _, c := range v.Cards {
		items = append(items, map[string]any{
			"image": c.Image,
			"title": c.Title,
			"text":  c.Text,
			"link":  c.Link,
		})
	}
	return map[string]any{"heading": v.Heading, "text": v.Text, "cards": items}
}

// StructValue is the generic value of a struct-shaped variant without a dedicated type.
type StructValue map[string]any

func (v StructValue) encode() any { return map[string]any(v) }

// ScalarValue is the generic value of a scalar variant without a dedicated type.
type ScalarValue struct {
	V any
}

func (v ScalarValue) encode() any { return v.V }

// Opaque keeps the raw value of a block whose tag is not registered.
// It is only produced by lenient parsing.
type Opaque struct {
	Raw json.RawMessage
}

func (v Opaque) encode() any {
	if len(v.Raw) == 0 {
		return json.RawMessage("null")
	}
	return v.Raw
}

// genericValue wraps a cleaned value for variants registered without a decoder.
func genericValue(cleaned any) Value {
	if m, ok := cleaned.(StructValue); ok {
		return m
	}
	return ScalarValue{V: cleaned}
}

func str(m StructValue, key string) string {
	s, _ := m[key].(string)
	return s
}

func ref(m StructValue, key string) ImageRef {
	r, _ := m[key].(ImageRef)
	return r
}
