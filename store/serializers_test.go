package store

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hupe1980/diskmap/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N uint32
}

func (c counter) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, c.N), nil
}

func (c *counter) UnmarshalBinary(b []byte) error {
	if len(b) != 4 {
		return errors.New("counter: bad length")
	}
	c.N = binary.LittleEndian.Uint32(b)
	return nil
}

func TestSerializers_AutoRegister(t *testing.T) {
	s := NewSerializers()

	frame, err := s.Encode(record{ID: 1}, CompressionNone)
	require.NoError(t, err)
	id, ok := s.ID(typeName(record{}))
	require.True(t, ok)
	assert.Equal(t, uint16(1), id)
	assert.Equal(t, id, binary.LittleEndian.Uint16(frame))

	_, err = s.Encode(&counter{N: 1}, CompressionNone)
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "go-json", entries[0].Codec)
	assert.Equal(t, "binary", entries[1].Codec)

	name, ok := s.Name(2)
	require.True(t, ok)
	assert.Equal(t, typeName(counter{}), name)
}

func TestSerializers_Persisted(t *testing.T) {
	s := NewSerializers()
	frame, err := s.Encode(record{ID: 5, Name: "x"}, CompressionNone)
	require.NoError(t, err)

	restored, err := NewSerializersFrom(s.Entries())
	require.NoError(t, err)

	var out record
	require.NoError(t, restored.Decode(frame, &out))
	assert.Equal(t, record{ID: 5, Name: "x"}, out)
}

type customCodec struct{ codec.GoJSON }

func (customCodec) Name() string { return "custom" }

func TestSerializers_CustomFallback(t *testing.T) {
	s := NewSerializers(customCodec{})
	frame, err := s.Encode(record{ID: 9, Name: "custom"}, CompressionNone)
	require.NoError(t, err)
	require.Equal(t, "custom", s.Entries()[0].Codec)

	_, err = NewSerializersFrom(s.Entries())
	assert.ErrorIs(t, err, ErrUnknownSerializer)

	restored := NewSerializers(customCodec{})
	require.NoError(t, restored.Load(s.Entries()))

	var out record
	require.NoError(t, restored.Decode(frame, &out))
	assert.Equal(t, record{ID: 9, Name: "custom"}, out)

	c, ok := restored.Codec("binary")
	require.True(t, ok)
	assert.Equal(t, "binary", c.Name())
	_, ok = restored.Codec("missing")
	assert.False(t, ok)
}

func TestSerializers_OversizedLZ4Header(t *testing.T) {
	s := NewSerializers()
	_, err := s.Encode(record{ID: 1}, CompressionNone)
	require.NoError(t, err)

	frame := []byte{1, 0, byte(CompressionLZ4)}
	frame = binary.LittleEndian.AppendUint32(frame, 0xFFFFFFFF)
	frame = append(frame, 0x10, 'x')

	var out record
	assert.ErrorIs(t, s.Decode(frame, &out), ErrCorrupt)
}

func TestSerializers_Errors(t *testing.T) {
	s := NewSerializers()

	assert.ErrorIs(t, s.Decode([]byte{1}, &record{}), ErrCorrupt)
	assert.ErrorIs(t, s.Decode([]byte{9, 0, 0, '{', '}'}, &record{}), ErrUnknownSerializer)

	frame, err := s.Encode(record{ID: 1}, CompressionNone)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Decode(frame, &counter{}), ErrUnknownSerializer)

	frame[len(frame)-1] = 'x'
	assert.ErrorIs(t, s.Decode(frame, &record{}), ErrCorrupt)

	require.NoError(t, s.Register("fixed", 7, codec.JSON{}))
	require.NoError(t, s.Register("fixed", 7, codec.JSON{}))
	assert.ErrorIs(t, s.Register("fixed", 8, codec.JSON{}), ErrSerializerConflict)
	assert.ErrorIs(t, s.Register("other", 7, codec.JSON{}), ErrSerializerConflict)
	assert.ErrorIs(t, s.Register("zero", 0, codec.JSON{}), ErrSerializerConflict)

	_, err = NewSerializersFrom([]SerializerEntry{{ID: 1, Name: "a", Codec: "protobuf"}})
	assert.ErrorIs(t, err, ErrUnknownSerializer)
}

func TestCompression_SkipsIncompressible(t *testing.T) {
	used, body, err := compress([]byte("short"), CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, used)
	assert.Equal(t, []byte("short"), body)

	_, err = decompress([]byte{1, 2}, CompressionLZ4)
	assert.Error(t, err)
	_, err = decompress(nil, Compression(9))
	assert.Error(t, err)
}
