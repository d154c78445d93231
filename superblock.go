package diskmap

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/diskmap/codec"
	"github.com/hupe1980/diskmap/store"
)

const (
	superblockMagic   uint32 = 0x444d4150 // "DMAP"
	superblockVersion uint16 = 1

	// superblockPos follows the volume size marker.
	superblockPos  = store.MarkerSize
	superblockSize = 28
)

// superblock is the fixed map header at offset 8:
//
//	[magic:uint32][version:uint16][loadFactor:uint16][firstNode:int64]
//	[serializersPos:int64][serializersSize:uint32]
type superblock struct {
	loadFactor      int
	firstNode       int64
	serializersPos  int64
	serializersSize int
}

func (sb superblock) encode() []byte {
	b := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(b[0:], superblockMagic)
	binary.LittleEndian.PutUint16(b[4:], superblockVersion)
	binary.LittleEndian.PutUint16(b[6:], uint16(sb.loadFactor))
	binary.LittleEndian.PutUint64(b[8:], uint64(sb.firstNode))
	binary.LittleEndian.PutUint64(b[16:], uint64(sb.serializersPos))
	binary.LittleEndian.PutUint32(b[24:], uint32(sb.serializersSize))
	return b
}

func decodeSuperblock(b []byte) (superblock, error) {
	if len(b) < superblockSize {
		return superblock{}, fmt.Errorf("%w: %d bytes", ErrBadSuperblock, len(b))
	}
	if magic := binary.LittleEndian.Uint32(b[0:]); magic != superblockMagic {
		return superblock{}, fmt.Errorf("%w: magic %#x", ErrBadSuperblock, magic)
	}
	if v := binary.LittleEndian.Uint16(b[4:]); v != superblockVersion {
		return superblock{}, fmt.Errorf("%w: version %d", ErrBadSuperblock, v)
	}
	return superblock{
		loadFactor:      int(binary.LittleEndian.Uint16(b[6:])),
		firstNode:       int64(binary.LittleEndian.Uint64(b[8:])),
		serializersPos:  int64(binary.LittleEndian.Uint64(b[16:])),
		serializersSize: int(binary.LittleEndian.Uint32(b[24:])),
	}, nil
}

func readSuperblock(s store.Store) (superblock, error) {
	b, err := s.ReadAt(superblockPos, superblockSize)
	if err != nil {
		return superblock{}, err
	}
	if b == nil {
		return superblock{}, fmt.Errorf("%w: volume too small", ErrBadSuperblock)
	}
	return decodeSuperblock(b)
}

func writeSuperblock(s store.Store, sb superblock) error {
	return s.WriteAt(sb.encode(), superblockPos)
}

// loadSerializers registers the persisted serializer table into the
// volume's table. The table is stored as raw JSON so it can be read before
// any serializer is known.
func loadSerializers(s store.Store, sb superblock) error {
	if sb.serializersPos == 0 {
		return nil
	}
	b, err := s.ReadAt(sb.serializersPos, sb.serializersSize)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: serializer table at %d", store.ErrCorrupt, sb.serializersPos)
	}
	var entries []store.SerializerEntry
	if err := (codec.GoJSON{}).Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("%w: serializer table: %w", store.ErrCorrupt, err)
	}
	return s.Serializers().Load(entries)
}

// writeSerializers appends the current table and returns its location.
func writeSerializers(s store.Store) (int64, int, error) {
	b, err := (codec.GoJSON{}).Marshal(s.Serializers().Entries())
	if err != nil {
		return 0, 0, err
	}
	pos, err := s.Allocate(len(b))
	if err != nil {
		return 0, 0, err
	}
	if err := s.WriteAt(b, pos); err != nil {
		return 0, 0, err
	}
	return pos, len(b), nil
}
