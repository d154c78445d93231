package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hupe1980/diskmap/blobstore"
	"github.com/hupe1980/diskmap/store"
)

const (
	// CurrentName is the pointer blob naming the latest manifest.
	CurrentName = "CURRENT"

	// FormatVersion is the manifest format written by Export.
	FormatVersion = 1

	manifestPrefix = "MANIFEST-"
	dataPrefix     = "DATA-"
)

var (
	// ErrNoBackup is returned when a volume has no committed backup.
	ErrNoBackup = errors.New("backup: no committed backup")
	// ErrChecksumMismatch is returned when restored bytes do not match the manifest.
	ErrChecksumMismatch = errors.New("backup: checksum mismatch")
	// ErrUnsupportedVersion is returned for manifests written by a newer format.
	ErrUnsupportedVersion = errors.New("backup: unsupported manifest version")
)

// Manifest describes one exported volume.
type Manifest struct {
	FormatVersion int                     `json:"format_version"`
	Name          string                  `json:"name"`
	Version       uint64                  `json:"version"`
	Data          string                  `json:"data"`
	Size          int64                   `json:"size"`
	Checksum      uint32                  `json:"checksum"`
	Compressed    int64                   `json:"compressed"`
	Serializers   []store.SerializerEntry `json:"serializers,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

func manifestName(name string, version uint64) string {
	return path.Join(name, fmt.Sprintf("%s%06d.json", manifestPrefix, version))
}

func dataName(name string, version uint64) string {
	return path.Join(name, fmt.Sprintf("%s%06d.zst", dataPrefix, version))
}

func currentName(name string) string {
	return path.Join(name, CurrentName)
}

// Latest returns the manifest CURRENT points to.
func Latest(ctx context.Context, bs blobstore.BlobStore, name string) (*Manifest, error) {
	ptr, err := blobstore.ReadAll(ctx, bs, currentName(name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoBackup, name)
		}
		return nil, err
	}
	return readManifest(ctx, bs, strings.TrimSpace(string(ptr)))
}

func readManifest(ctx context.Context, bs blobstore.BlobStore, blobName string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, bs, blobName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("backup: decode %s: %w", blobName, err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, m.FormatVersion, FormatVersion)
	}
	return &m, nil
}

// Versions returns the manifests of all exports of name, oldest first.
func Versions(ctx context.Context, bs blobstore.BlobStore, name string) ([]*Manifest, error) {
	names, err := bs.List(ctx, name+"/"+manifestPrefix)
	if err != nil {
		return nil, err
	}
	manifests := make([]*Manifest, 0, len(names))
	for _, n := range names {
		m, err := readManifest(ctx, bs, n)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Prune deletes all but the newest keep exports of name. The export
// CURRENT points to is never deleted.
func Prune(ctx context.Context, bs blobstore.BlobStore, name string, keep int) (int, error) {
	manifests, err := Versions(ctx, bs, name)
	if err != nil {
		return 0, err
	}
	latest, err := Latest(ctx, bs, name)
	if err != nil && !errors.Is(err, ErrNoBackup) {
		return 0, err
	}

	deleted := 0
	for i := 0; i < len(manifests)-keep; i++ {
		m := manifests[i]
		if latest != nil && m.Version == latest.Version {
			continue
		}
		if err := bs.Delete(ctx, m.Data); err != nil {
			return deleted, err
		}
		if err := bs.Delete(ctx, manifestName(name, m.Version)); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
