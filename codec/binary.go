package codec

import "encoding"

// Binary is the self-describing codec: values encode and decode themselves
// through encoding.BinaryMarshaler and encoding.BinaryUnmarshaler.
type Binary struct{}

// Marshal calls v.MarshalBinary.
func (Binary) Marshal(v any) ([]byte, error) {
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return nil, ErrNotBinary
	}
	return m.MarshalBinary()
}

// Unmarshal calls v.UnmarshalBinary.
func (Binary) Unmarshal(data []byte, v any) error {
	u, ok := v.(encoding.BinaryUnmarshaler)
	if !ok {
		return ErrNotBinary
	}
	return u.UnmarshalBinary(data)
}

// Name returns the unique name of the codec ("binary").
func (Binary) Name() string { return "binary" }

// IsBinary reports whether v can use the Binary codec.
func IsBinary(v any) bool {
	_, ok := v.(encoding.BinaryMarshaler)
	return ok
}
