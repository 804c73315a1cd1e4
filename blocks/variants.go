package blocks

// Built-in variant tags as they appear in stored streams.
const (
	HeadingTag   = "heading_block"
	ParagraphTag = "paragraph_block"
	ImageTag     = "image_block"
	EmbedTag     = "embed_block"
	CardTag      = "card_block"
)

// Variant binds a tag to its schema, editor metadata and presentation template.
type Variant struct {
	Tag      string
	Label    string
	Icon     string
	Template string
	Schema   Field

	// Decode builds the typed value from a cleaned value. When nil the value is
	// kept as a StructValue or ScalarValue.
	Decode func(cleaned any) Value
}

func (v Variant) decode(cleaned any) Value {
	if v.Decode == nil {
		return genericValue(cleaned)
	}
	return v.Decode(cleaned)
}

func HeadingVariant() Variant {
	return Variant{
		Tag:      HeadingTag,
		Label:    "Heading",
		Icon:     "title",
		Template: "blocks/heading",
		Schema: StructBlock{Children: []Field{
			CharBlock{FieldName: "heading_text", Required: true, HelpText: "Add your heading"},
			ChoiceBlock{FieldName: "size", Choices: []Choice{
				{Value: "", Label: "Select a heading size"},
				{Value: string(SizeH2), Label: "H2"},
				{Value: string(SizeH3), Label: "H3"},
				{Value: string(SizeH4), Label: "H4"},
			}},
		}},
		Decode: func(cleaned any) Value {
			m := cleaned.(StructValue)
			return Heading{Text: str(m, "heading_text"), Size: HeadingSize(str(m, "size"))}
		},
	}
}

func ParagraphVariant() Variant {
	return Variant{
		Tag:      ParagraphTag,
		Label:    "Paragraph",
		Icon:     "pilcrow",
		Template: "blocks/paragraph",
		Schema:   RichTextBlock{},
		Decode: func(cleaned any) Value {
			s, _ := cleaned.(string)
			return Paragraph{HTML: s}
		},
	}
}

func ImageVariant() Variant {
	return Variant{
		Tag:      ImageTag,
		Label:    "Image",
		Icon:     "image",
		Template: "blocks/image",
		Schema: StructBlock{Children: []Field{
			ImageBlock{FieldName: "image", Required: true},
			CharBlock{FieldName: "caption"},
			CharBlock{FieldName: "attribution"},
		}},
		Decode: func(cleaned any) Value {
			m := cleaned.(StructValue)
			return CaptionedImage{Image: ref(m, "image"), Caption: str(m, "caption"), Attribution: str(m, "attribution")}
		},
	}
}

func EmbedVariant() Variant {
	return Variant{
		Tag:      EmbedTag,
		Label:    "Embed",
		Icon:     "media",
		Template: "blocks/embed",
		Schema:   URLBlock{Required: true, HelpText: "Insert a URL to embed. For example, https://www.youtube.com/watch?v=SGJFWirQ3ks"},
		Decode: func(cleaned any) Value {
			s, _ := cleaned.(string)
			return Embed{URL: s}
		},
	}
}

func CardVariant() Variant {
	return Variant{
		Tag:      CardTag,
		Label:    "Cards",
		Icon:     "form",
		Template: "blocks/card",
		Schema: StructBlock{Children: []Field{
			CharBlock{FieldName: "heading", HelpText: "Add a heading for the card grid"},
			RichTextBlock{FieldName: "text"},
			ListBlock{FieldName: "cards", Child: StructBlock{Children: []Field{
				ImageBlock{FieldName: "image", Required: true},
				CharBlock{FieldName: "title", Required: true, MaxLength: 100},
				RichTextBlock{FieldName: "text"},
				URLBlock{FieldName: "link"},
			}}},
		}},
		Decode: func(cleaned any) Value {
			m := cleaned.(StructValue)
			card := Card{Heading: str(m, "heading"), Text: str(m, "text")}
			items, _ := m["cards"].([]any)
			for _, it := range items {
				cm := it.(StructValue)
				card.Cards = append(card.Cards, CardItem{
					Image: ref(cm, "image"),
					Title: str(cm, "title"),
					Text:  str(cm, "text"),
					Link:  str(cm, "link"),
				})
			}
			return card
		},
	}
}

// BuiltinVariants returns every variant shipped with the package.
func BuiltinVariants() []Variant {
	return []Variant{HeadingVariant(), ParagraphVariant(), ImageVariant(), EmbedVariant(), CardVariant()}
}
