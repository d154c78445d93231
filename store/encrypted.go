package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// lengthPrefixSize is the int32 ciphertext length written before every
// encrypted object.
const lengthPrefixSize = 4

// EncryptedStore decorates a file or mapped volume with AES-GCM encryption
// of objects. Raw positional I/O, allocation, commit and close go straight
// to the wrapped volume.
//
// Encrypted objects are laid out as [length:int32][nonce][ciphertext+tag].
// The object position is bound as additional data, so ciphertext copied to
// another position fails to decrypt.
type EncryptedStore struct {
	Store
	aead        cipher.AEAD
	compression Compression
}

var _ Store = (*EncryptedStore)(nil)

// NewEncrypted wraps s. The key must be 16, 24 or 32 bytes long.
func NewEncrypted(s Store, key []byte, optFns ...Option) (*EncryptedStore, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	opts := applyOptions(optFns)
	return &EncryptedStore{Store: s, aead: aead, compression: opts.compression}, nil
}

// OpenEncryptedFile opens an encrypted plain-file volume.
func OpenEncryptedFile(path string, key []byte, optFns ...Option) (*EncryptedStore, error) {
	s, err := OpenFile(path, optFns...)
	if err != nil {
		return nil, err
	}
	es, err := NewEncrypted(s, key, optFns...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return es, nil
}

// OpenEncryptedMapped opens an encrypted memory-mapped volume.
func OpenEncryptedMapped(path string, key []byte, optFns ...Option) (*EncryptedStore, error) {
	s, err := OpenMapped(path, optFns...)
	if err != nil {
		return nil, err
	}
	es, err := NewEncrypted(s, key, optFns...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return es, nil
}

// Unwrap returns the wrapped volume.
func (s *EncryptedStore) Unwrap() Store { return s.Store }

// WriteObject encrypts the encoded object and writes it behind its length.
// The returned size covers the length prefix.
func (s *EncryptedStore) WriteObject(v any) (int64, int, error) {
	frame, err := s.Serializers().Encode(v, s.compression)
	if err != nil {
		return 0, 0, err
	}

	n := s.aead.NonceSize() + len(frame) + s.aead.Overhead()
	if n > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: object of %d bytes", ErrInvalidSize, n)
	}
	pos, err := s.Allocate(lengthPrefixSize + n)
	if err != nil {
		return 0, 0, err
	}

	buf := make([]byte, lengthPrefixSize+s.aead.NonceSize(), lengthPrefixSize+n)
	binary.LittleEndian.PutUint32(buf, uint32(n))
	nonce := buf[lengthPrefixSize:]
	if _, err := rand.Read(nonce); err != nil {
		return 0, 0, err
	}
	buf = s.aead.Seal(buf, nonce, frame, additionalData(pos))

	if err := s.WriteAt(buf, pos); err != nil {
		return 0, 0, err
	}
	return pos, len(buf), nil
}

// ReadObject reads the length prefix at pos, then decrypts and decodes
// exactly that many bytes. The size argument is ignored.
func (s *EncryptedStore) ReadObject(pos int64, _ int, v any) error {
	prefix, err := s.ReadAt(pos, lengthPrefixSize)
	if err != nil {
		return err
	}
	if prefix == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, pos)
	}

	n := int32(binary.LittleEndian.Uint32(prefix))
	if n < int32(s.aead.NonceSize()+s.aead.Overhead()) || pos+lengthPrefixSize+int64(n) > s.Size() {
		return fmt.Errorf("%w: encrypted length %d at %d", ErrCorrupt, n, pos)
	}
	sealed, err := s.ReadAt(pos+lengthPrefixSize, int(n))
	if err != nil {
		return err
	}

	ns := s.aead.NonceSize()
	frame, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], additionalData(pos))
	if err != nil {
		return fmt.Errorf("%w: decrypt at %d: %w", ErrCorrupt, pos, err)
	}
	return s.Serializers().Decode(frame, v)
}

func additionalData(pos int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(pos))
}
