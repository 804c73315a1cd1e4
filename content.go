package pubsite

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/eringen/pubsite/blocks"
	"github.com/eringen/pubsite/richtext"
)

// The encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
var (
	contentEncoder, _ = zstd.NewWriter(nil)
	contentDecoder, _ = zstd.NewReader(nil)
)

func compressContent(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return contentEncoder.EncodeAll(data, nil)
}

func decompressContent(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out, err := contentDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress content: %w", err)
	}
	return out, nil
}

// revisionDoc is the stored form of every revision: the title plus the
// object's type-specific document.
type revisionDoc struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

func encodeRevision(title string, content []byte) ([]byte, error) {
	if len(content) == 0 {
		content = []byte("{}")
	}
	return json.Marshal(revisionDoc{Title: title, Content: content})
}

func decodeRevision(data []byte) (revisionDoc, error) {
	var doc revisionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return revisionDoc{}, fmt.Errorf("decode revision: %w", err)
	}
	return doc, nil
}

// withoutGalleryImage drops imageID from a blog document's gallery. Other
// fields are kept as stored.
func withoutGalleryImage(content []byte, imageID int64) ([]byte, bool, error) {
	if len(content) == 0 {
		return content, false, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, false, fmt.Errorf("decode page content: %w", err)
	}
	raw, ok := doc["gallery_images"]
	if !ok {
		return content, false, nil
	}
	var gallery []GalleryImage
	if err := json.Unmarshal(raw, &gallery); err != nil {
		return nil, false, fmt.Errorf("decode gallery: %w", err)
	}
	kept := slices.DeleteFunc(slices.Clone(gallery), func(g GalleryImage) bool { return g.ImageID == imageID })
	if len(kept) == len(gallery) {
		return content, false, nil
	}
	if kept == nil {
		kept = []GalleryImage{}
	}
	var err error
	if doc["gallery_images"], err = json.Marshal(kept); err != nil {
		return nil, false, err
	}
	out, err := json.Marshal(doc)
	return out, err == nil, err
}

type homeDoc struct {
	Intro string          `json:"intro"`
	Body  json.RawMessage `json:"body"`
}

type blogIndexDoc struct {
	Intro string `json:"intro"`
}

type blogDoc struct {
	Date    string         `json:"date"`
	Intro   string         `json:"intro"`
	Body    string         `json:"body"`
	Authors []int64        `json:"authors"`
	Tags    []string       `json:"tags"`
	Gallery []GalleryImage `json:"gallery_images"`
}

type portfolioDoc struct {
	Body json.RawMessage `json:"body"`
}

type formDoc struct {
	Intro        string      `json:"intro"`
	ThankYouText string      `json:"thank_you_text"`
	Fields       []FormField `json:"form_fields"`
	FromAddress  string      `json:"from_address"`
	ToAddress    string      `json:"to_address"`
	Subject      string      `json:"subject"`
}

type footerDoc struct {
	Body string `json:"body"`
}

// policyFor binds page types to the stream policy of their body field.
func policyFor(t PageType) (string, bool) {
	switch t {
	case HomePageType:
		return blocks.BasePolicy, true
	case PortfolioPageType:
		return blocks.PortfolioPolicy, true
	}
	return "", false
}

// ContentCodec turns stored page documents into typed pages.
type ContentCodec struct {
	catalog *blocks.Catalog
	mode    blocks.Mode
}

func NewContentCodec(c *blocks.Catalog, mode blocks.Mode) *ContentCodec {
	return &ContentCodec{catalog: c, mode: mode}
}

func (cc *ContentCodec) parseBody(t PageType, raw json.RawMessage) (blocks.Stream, error) {
	policy, _ := policyFor(t)
	reg, err := cc.catalog.Registry(policy)
	if err != nil {
		return nil, err
	}
	return blocks.Parse(raw, reg, cc.mode)
}

func unmarshalDoc(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode page content: %w", err)
	}
	return nil
}

func (cc *ContentCodec) HomePage(p Page) (HomePage, error) {
	var doc homeDoc
	if err := unmarshalDoc(p.Content, &doc); err != nil {
		return HomePage{}, err
	}
	body, err := cc.parseBody(HomePageType, doc.Body)
	if err != nil {
		return HomePage{}, err
	}
	return HomePage{Page: p, Intro: doc.Intro, Body: body}, nil
}

func (cc *ContentCodec) BlogIndexPage(p Page) (BlogIndexPage, error) {
	var doc blogIndexDoc
	if err := unmarshalDoc(p.Content, &doc); err != nil {
		return BlogIndexPage{}, err
	}
	return BlogIndexPage{Page: p, Intro: doc.Intro}, nil
}

func (cc *ContentCodec) BlogPage(p Page) (BlogPage, error) {
	var doc blogDoc
	if err := unmarshalDoc(p.Content, &doc); err != nil {
		return BlogPage{}, err
	}
	bp := BlogPage{
		Page:          p,
		Date:          doc.Date,
		Intro:         doc.Intro,
		Body:          doc.Body,
		AuthorIDs:     doc.Authors,
		GalleryImages: doc.Gallery,
	}
	bp.Tags = doc.Tags
	return bp, nil
}

func (cc *ContentCodec) PortfolioPage(p Page) (PortfolioPage, error) {
	var doc portfolioDoc
	if err := unmarshalDoc(p.Content, &doc); err != nil {
		return PortfolioPage{}, err
	}
	body, err := cc.parseBody(PortfolioPageType, doc.Body)
	if err != nil {
		return PortfolioPage{}, err
	}
	return PortfolioPage{Page: p, Body: body}, nil
}

func (cc *ContentCodec) FormPage(p Page) (FormPage, error) {
	var doc formDoc
	if err := unmarshalDoc(p.Content, &doc); err != nil {
		return FormPage{}, err
	}
	return FormPage{
		Page:         p,
		Intro:        doc.Intro,
		ThankYouText: doc.ThankYouText,
		Fields:       doc.Fields,
		FromAddress:  doc.FromAddress,
		ToAddress:    doc.ToAddress,
		Subject:      doc.Subject,
	}, nil
}

// CheckContent parses every stream field of a page document, reporting
// unknown variants and malformed data the way a render would.
func (cc *ContentCodec) CheckContent(t PageType, content []byte) error {
	if _, ok := policyFor(t); !ok {
		return nil
	}
	var doc struct {
		Body json.RawMessage `json:"body"`
	}
	if err := unmarshalDoc(content, &doc); err != nil {
		return err
	}
	_, err := cc.parseBody(t, doc.Body)
	return err
}

// EncodeHome and the other Encode helpers build the stored document for a page.
func EncodeHome(intro string, body blocks.Stream) ([]byte, error) {
	raw, err := blocks.Serialize(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(homeDoc{Intro: intro, Body: raw})
}

func EncodeBlogIndex(intro string) ([]byte, error) {
	return json.Marshal(blogIndexDoc{Intro: intro})
}

func EncodeBlog(p BlogPage) ([]byte, error) {
	return json.Marshal(blogDoc{
		Date:    p.Date,
		Intro:   p.Intro,
		Body:    p.Body,
		Authors: p.AuthorIDs,
		Tags:    p.Tags,
		Gallery: p.GalleryImages,
	})
}

func EncodePortfolio(body blocks.Stream) ([]byte, error) {
	raw, err := blocks.Serialize(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(portfolioDoc{Body: raw})
}

func EncodeForm(p FormPage) ([]byte, error) {
	return json.Marshal(formDoc{
		Intro:        p.Intro,
		ThankYouText: p.ThankYouText,
		Fields:       p.Fields,
		FromAddress:  p.FromAddress,
		ToAddress:    p.ToAddress,
		Subject:      p.Subject,
	})
}

// pageIndex is what publishing derives from a document for listing and search.
type pageIndex struct {
	tags       []string
	searchText string
}

func indexContent(t PageType, title string, content []byte) pageIndex {
	parts := []string{title}
	switch t {
	case BlogPageType:
		var doc blogDoc
		if json.Unmarshal(content, &doc) == nil {
			parts = append(parts, doc.Intro, richtext.PlainText(doc.Body))
			return pageIndex{tags: cleanTags(doc.Tags), searchText: strings.Join(parts, "\n")}
		}
	case HomePageType, BlogIndexPageType, FormPageType:
		var doc struct {
			Intro string `json:"intro"`
		}
		if json.Unmarshal(content, &doc) == nil {
			parts = append(parts, richtext.PlainText(doc.Intro))
		}
	}
	return pageIndex{searchText: strings.Join(parts, "\n")}
}

// cleanTags trims and de-duplicates tags, keeping their case.
func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
