package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Registry is the closed set of variants permitted in one stream field.
// A Registry is safe for concurrent use once built.
type Registry struct {
	name     string
	variants map[string]Variant
	order    []string
	images   ImageChecker
}

func NewRegistry(name string) *Registry {
	return &Registry{name: name, variants: make(map[string]Variant)}
}

// Register adds a variant. Tags are unique within a registry.
func (r *Registry) Register(v Variant) error {
	if v.Tag == "" {
		return errors.New("blocks: variant tag is empty")
	}
	if v.Schema == nil {
		return fmt.Errorf("blocks: variant %q has no schema", v.Tag)
	}
	if _, ok := r.variants[v.Tag]; ok {
		return fmt.Errorf("blocks: variant %q already registered in %q", v.Tag, r.name)
	}
	r.variants[v.Tag] = v
	r.order = append(r.order, v.Tag)
	return nil
}

func (r *Registry) Lookup(tag string) (Variant, bool) {
	v, ok := r.variants[tag]
	return v, ok
}

// Tags lists the permitted tags in registration order.
func (r *Registry) Tags() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Name() string { return r.name }

// WithImageChecker returns a copy of r that verifies image references on validation.
func (r *Registry) WithImageChecker(c ImageChecker) *Registry {
	cp := *r
	cp.images = c
	return &cp
}

// Validate checks raw against the schema of tag and returns a fully built block
// with a fresh id. raw may be decoded JSON (map, slice, string, number) or a
// json.RawMessage.
func (r *Registry) Validate(ctx context.Context, tag string, raw any) (Block, error) {
	v, ok := r.variants[tag]
	if !ok {
		return Block{}, &UnknownVariantError{Tag: tag, Index: -1, Registry: r.name}
	}
	if msg, ok := raw.(json.RawMessage); ok {
		decoded, err := decodeValue(msg)
		if err != nil {
			return Block{}, annotate(tag, -1, invalid("value is not valid JSON: %v", err))
		}
		raw = decoded
	}
	vc := &ValidationContext{Ctx: ctx, Images: r.images}
	cleaned, err := v.Schema.Clean(vc, raw)
	if err != nil {
		return Block{}, annotate(tag, -1, err)
	}
	return Block{ID: uuid.NewString(), Type: tag, Value: v.decode(cleaned)}, nil
}

// ValidateStream validates a stream document submitted by an editor. Every
// block is checked and all violations are reported together. Unknown tags are
// always rejected.
func (r *Registry) ValidateStream(ctx context.Context, data []byte) (Stream, error) {
	return r.decode(ctx, data, Strict, r.images, true)
}

// decode is shared by editor validation and stored-data parsing. With editing
// set, field violations surface as ValidationErrors; otherwise they mean the
// stored data is corrupt and are wrapped in MalformedStreamError.
func (r *Registry) decode(ctx context.Context, data []byte, mode Mode, images ImageChecker, editing bool) (Stream, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Stream{}, nil
	}
	var raws []rawBlock
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, &MalformedStreamError{Index: -1, Err: err}
	}

	vc := &ValidationContext{Ctx: ctx, Images: images}
	stream := make(Stream, 0, len(raws))
	var errs ValidationErrors
	for i, rb := range raws {
		if rb.Type == "" {
			return nil, &MalformedStreamError{Index: i, Err: errors.New("block has no type")}
		}
		id := rb.ID
		if id == "" {
			id = uuid.NewString()
		}
		v, ok := r.variants[rb.Type]
		if !ok {
			if mode == Strict {
				return nil, &UnknownVariantError{Tag: rb.Type, Index: i, Registry: r.name}
			}
			stream = append(stream, Block{ID: id, Type: rb.Type, Value: Opaque{Raw: compact(rb.Value)}})
			continue
		}
		raw, err := decodeValue(rb.Value)
		if err != nil {
			return nil, &MalformedStreamError{Index: i, Err: err}
		}
		cleaned, err := v.Schema.Clean(vc, raw)
		if err != nil {
			if !editing {
				return nil, &MalformedStreamError{Index: i, Err: annotate(rb.Type, i, err)}
			}
			errs = append(errs, annotate(rb.Type, i, err)...)
			continue
		}
		stream = append(stream, Block{ID: id, Type: rb.Type, Value: v.decode(cleaned)})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return stream, nil
}

type rawBlock struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
	ID    string          `json:"id,omitempty"`
}

func decodeValue(msg json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(msg)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func compact(msg json.RawMessage) json.RawMessage {
	if len(msg) == 0 {
		return json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err != nil {
		return append(json.RawMessage(nil), msg...)
	}
	return buf.Bytes()
}
