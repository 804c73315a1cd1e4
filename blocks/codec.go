package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/google/uuid"
)

// Mode selects how Parse treats tags missing from the registry.
type Mode int

const (
	// Strict fails with UnknownVariantError.
	Strict Mode = iota
	// Lenient keeps the block as an Opaque value.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// Block is one element of a Stream.
type Block struct {
	ID    string
	Type  string
	Value Value
}

// Stream is an ordered sequence of blocks; order is rendering order.
type Stream []Block

// Parse reads stored stream bytes. Image references are not checked, so a
// dangling reference parses and later renders as a placeholder.
func Parse(data []byte, reg *Registry, mode Mode) (Stream, error) {
	return reg.decode(context.Background(), data, mode, nil, false)
}

// Serialize encodes s in the stored JSON form. Blocks without an id get one.
func Serialize(s Stream) ([]byte, error) {
	out := make([]rawBlock, 0, len(s))
	for _, b := range s {
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		var val any
		if b.Value != nil {
			val = b.Value.encode()
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		out = append(out, rawBlock{Type: b.Type, Value: raw, ID: id})
	}
	return json.Marshal(out)
}

// MarshalJSON lets a Stream be embedded directly in larger JSON documents.
func (s Stream) MarshalJSON() ([]byte, error) {
	return Serialize(s)
}

// Equal reports whether two streams hold the same blocks in the same order.
func (s Stream) Equal(o Stream) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		a, b := s[i], o[i]
		if a.ID != b.ID || a.Type != b.Type {
			return false
		}
		ao, aok := a.Value.(Opaque)
		bo, bok := b.Value.(Opaque)
		if aok || bok {
			if !aok || !bok || !bytes.Equal(compact(ao.Raw), compact(bo.Raw)) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a.Value, b.Value) {
			return false
		}
	}
	return true
}

// Types returns the tag of every block, in order.
func (s Stream) Types() []string {
	tags := make([]string, len(s))
	for i, b := range s {
		tags[i] = b.Type
	}
	return tags
}

// HasOpaque reports whether any block was kept opaque by lenient parsing.
func (s Stream) HasOpaque() bool {
	for _, b := range s {
		if _, ok := b.Value.(Opaque); ok {
			return true
		}
	}
	return false
}

// Images collects every image referenced by the stream.
func (s Stream) Images() []ImageRef {
	var refs []ImageRef
	for _, b := range s {
		switch v := b.Value.(type) {
		case CaptionedImage:
			refs = append(refs, v.Image)
		case Card:
			for _, c := range v.Cards {
				refs = append(refs, c.Image)
			}
		}
	}
	return refs
}
