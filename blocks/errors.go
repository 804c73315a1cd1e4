package blocks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned when a stream policy name has not been defined.
var ErrUnknownPolicy = errors.New("blocks: unknown stream policy")

// ValidationError reports one field that violates its block's schema.
type ValidationError struct {
	Block  string // variant tag
	Index  int    // position in the stream, -1 when validating a single block
	Field  string // dotted path inside the block value, empty for scalar blocks
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Index >= 0 {
		fmt.Fprintf(&b, "block %d ", e.Index)
	}
	b.WriteString(e.Block)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// ValidationErrors holds every offending field found in one validation pass.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (es ValidationErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// Has reports whether field (a dotted path) is among the offending fields.
func (es ValidationErrors) Has(field string) bool {
	for _, e := range es {
		if e.Field == field {
			return true
		}
	}
	return false
}

// UnknownVariantError is returned by strict parsing and by validation when a block
// tag is not part of the active registry.
type UnknownVariantError struct {
	Tag      string
	Index    int
	Registry string
}

func (e *UnknownVariantError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("unknown block type %q for stream %q", e.Tag, e.Registry)
	}
	return fmt.Sprintf("unknown block type %q at position %d for stream %q", e.Tag, e.Index, e.Registry)
}

// MalformedStreamError means stored stream bytes could not be turned back into blocks.
type MalformedStreamError struct {
	Index int // -1 when the document as a whole is unreadable
	Err   error
}

func (e *MalformedStreamError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed stream: %v", e.Err)
	}
	return fmt.Sprintf("malformed stream at block %d: %v", e.Index, e.Err)
}

func (e *MalformedStreamError) Unwrap() error { return e.Err }

// AssetResolutionError wraps a failure to resolve an image or embed at render time.
// It is always recovered locally.
type AssetResolutionError struct {
	Kind string // "image" or "embed"
	Ref  string
	Err  error
}

func (e *AssetResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %s: %v", e.Kind, e.Ref, e.Err)
}

func (e *AssetResolutionError) Unwrap() error { return e.Err }

// invalid builds a single leaf error; parents attach the path.
func invalid(format string, args ...any) error {
	return ValidationErrors{{Index: -1, Reason: fmt.Sprintf(format, args...)}}
}

// nest prefixes every field path in err with prefix.
func nest(prefix string, err error) ValidationErrors {
	var ves ValidationErrors
	if !errors.As(err, &ves) {
		return ValidationErrors{{Index: -1, Field: prefix, Reason: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(ves))
	for _, ve := range ves {
		path := prefix
		if ve.Field != "" {
			if path != "" {
				path += "."
			}
			path += ve.Field
		}
		out = append(out, &ValidationError{Block: ve.Block, Index: ve.Index, Field: path, Reason: ve.Reason})
	}
	return out
}

// annotate stamps the block tag and stream position on every error.
func annotate(tag string, index int, err error) ValidationErrors {
	ves := nest("", err)
	for _, ve := range ves {
		ve.Block = tag
		ve.Index = index
	}
	return ves
}
