package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/hupe1980/diskmap/codec"
)

// ErrSerializerConflict is returned when a name or id is registered twice
// with different values.
var ErrSerializerConflict = errors.New("store: serializer conflict")

// frameHeaderSize is the [id:uint16][compression:uint8] prefix of every
// encoded object.
const frameHeaderSize = 3

// SerializerEntry is one row of a serializer table.
type SerializerEntry struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Codec string `json:"codec"`
}

// Serializers maps type names to small integer ids for binary-format
// versioning. A table is passed to each volume explicitly; there is no
// process-wide registry.
type Serializers struct {
	mu       sync.RWMutex
	byName   map[string]SerializerEntry
	byID     map[uint16]SerializerEntry
	codecs   map[uint16]codec.Codec
	next     uint16
	fallback codec.Codec
}

// NewSerializers creates an empty table. Types without their own binary
// encoding use fallback, or codec.Default when fallback is nil.
func NewSerializers(fallback ...codec.Codec) *Serializers {
	s := &Serializers{
		byName:   make(map[string]SerializerEntry),
		byID:     make(map[uint16]SerializerEntry),
		codecs:   make(map[uint16]codec.Codec),
		next:     1,
		fallback: codec.Default,
	}
	if len(fallback) > 0 && fallback[0] != nil {
		s.fallback = fallback[0]
	}
	return s
}

// NewSerializersFrom rebuilds a table from previously persisted entries.
func NewSerializersFrom(entries []SerializerEntry, fallback ...codec.Codec) (*Serializers, error) {
	s := NewSerializers(fallback...)
	if err := s.Load(entries); err != nil {
		return nil, err
	}
	return s, nil
}

// Load registers persisted entries, resolving each codec name with Codec.
func (s *Serializers) Load(entries []SerializerEntry) error {
	for _, e := range entries {
		c, ok := s.Codec(e.Codec)
		if !ok {
			return fmt.Errorf("%w: codec %q", ErrUnknownSerializer, e.Codec)
		}
		if err := s.Register(e.Name, e.ID, c); err != nil {
			return err
		}
	}
	return nil
}

// Codec resolves a codec name against the built-in codecs and the table's
// fallback.
func (s *Serializers) Codec(name string) (codec.Codec, bool) {
	if c, ok := codec.ByName(name); ok {
		return c, true
	}
	if s.fallback.Name() == name {
		return s.fallback, true
	}
	return nil, false
}

// Register binds name to id and codec. Re-registering an identical entry
// is a no-op.
func (s *Serializers) Register(name string, id uint16, c codec.Codec) error {
	if id == 0 {
		return fmt.Errorf("%w: id 0 is reserved", ErrSerializerConflict)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := SerializerEntry{ID: id, Name: name, Codec: c.Name()}
	if old, ok := s.byName[name]; ok && old != e {
		return fmt.Errorf("%w: %s already registered as %d", ErrSerializerConflict, name, old.ID)
	}
	if old, ok := s.byID[id]; ok && old != e {
		return fmt.Errorf("%w: id %d already used by %s", ErrSerializerConflict, id, old.Name)
	}
	s.byName[name] = e
	s.byID[id] = e
	s.codecs[id] = c
	if id >= s.next {
		s.next = id + 1
	}
	return nil
}

// ID returns the id registered for name.
func (s *Serializers) ID(name string) (uint16, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byName[name]
	return e.ID, ok
}

// Name returns the type name registered for id.
func (s *Serializers) Name(id uint16) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e.Name, ok
}

// Entries returns the table sorted by id, suitable for persisting.
func (s *Serializers) Entries() []SerializerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SerializerEntry, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Encode serializes v into an object frame, registering its type on first use.
func (s *Serializers) Encode(v any, compression Compression) ([]byte, error) {
	e, c, err := s.entryFor(v)
	if err != nil {
		return nil, err
	}
	payload, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w", e.Name, err)
	}

	used, body, err := compress(payload, compression)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, frameHeaderSize+len(body))
	binary.LittleEndian.PutUint16(frame[0:], e.ID)
	frame[2] = byte(used)
	copy(frame[frameHeaderSize:], body)
	return frame, nil
}

// Decode deserializes an object frame into v, which must be a pointer to
// the registered type.
func (s *Serializers) Decode(frame []byte, v any) error {
	if len(frame) < frameHeaderSize {
		return fmt.Errorf("%w: object frame of %d bytes", ErrCorrupt, len(frame))
	}
	id := binary.LittleEndian.Uint16(frame[0:])

	s.mu.RLock()
	e, ok := s.byID[id]
	c := s.codecs[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownSerializer, id)
	}
	if name := typeName(v); name != e.Name {
		return fmt.Errorf("%w: id %d is %s, not %s", ErrUnknownSerializer, id, e.Name, name)
	}

	payload, err := decompress(frame[frameHeaderSize:], Compression(frame[2]))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if err := c.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrCorrupt, e.Name, err)
	}
	return nil
}

func (s *Serializers) entryFor(v any) (SerializerEntry, codec.Codec, error) {
	name := typeName(v)

	s.mu.RLock()
	e, ok := s.byName[name]
	c := s.codecs[e.ID]
	s.mu.RUnlock()
	if ok {
		return e, c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byName[name]; ok {
		return e, s.codecs[e.ID], nil
	}
	if s.next == 0 {
		return SerializerEntry{}, nil, fmt.Errorf("%w: table full", ErrSerializerConflict)
	}

	c = s.fallback
	if codec.IsBinary(v) {
		c = codec.Binary{}
	}
	e = SerializerEntry{ID: s.next, Name: name, Codec: c.Name()}
	s.next++
	s.byName[name] = e
	s.byID[e.ID] = e
	s.codecs[e.ID] = c
	return e, c, nil
}

// typeName names the dereferenced type of v, so T and *T share an entry.
func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
