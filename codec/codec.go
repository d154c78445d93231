// Package codec centralizes the object encodings a volume can persist.
//
// Every object written through a store carries a serializer id; the
// serializer table maps that id to a type name and a codec name. Changing
// the codec registered for an id is a breaking change for persisted bytes.
package codec

import (
	"errors"
	"fmt"
)

// ErrNotBinary is returned by the Binary codec for values that do not
// implement encoding.BinaryMarshaler / encoding.BinaryUnmarshaler.
var ErrNotBinary = errors.New("codec: value does not implement binary marshaling")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "binary":
		return Binary{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for types without their own binary encoding.
var Default Codec = GoJSON{}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
