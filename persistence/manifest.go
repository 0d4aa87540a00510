package persistence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/lexgo/internal/hash"
)

// Well-known file names inside a model directory.
const (
	StringsFile  = "strings.json"
	LexemesFile  = "lexemes.bin"
	VectorsFile  = "vectors.bin"
	ManifestFile = "manifest.json"
)

// ManifestVersion is the manifest schema version.
const ManifestVersion = 1

// Manifest describes a saved model directory. The per-file CRCs let loaders
// and remote transfers verify integrity without parsing the payloads.
type Manifest struct {
	Version       int               `json:"version"`
	SnapshotID    string            `json:"snapshot_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Records       uint64            `json:"records"`
	VectorsLength int               `json:"vectors_length"`
	Files         map[string]uint32 `json:"files"` // name -> CRC32-C
}

// NewManifest creates a manifest with a fresh snapshot id.
func NewManifest(records uint64, vectorsLength int) *Manifest {
	return &Manifest{
		Version:       ManifestVersion,
		SnapshotID:    uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Records:       records,
		VectorsLength: vectorsLength,
		Files:         make(map[string]uint32),
	}
}

// AddFile records the CRC32-C of a file in the model directory.
func (m *Manifest) AddFile(dir, name string) error {
	sum, err := fileCRC32C(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	m.Files[name] = sum
	return nil
}

// VerifyFile checks a file in dir against the recorded CRC.
func (m *Manifest) VerifyFile(dir, name string) error {
	want, ok := m.Files[name]
	if !ok {
		return fmt.Errorf("manifest has no entry for %s", name)
	}
	got, err := fileCRC32C(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s: got 0x%08x, want 0x%08x", ErrChecksum, name, got, want)
	}
	return nil
}

// WriteManifest writes the manifest atomically into dir.
func WriteManifest(dir string, m *Manifest) error {
	return SaveToFile(filepath.Join(dir, ManifestFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// ReadManifest reads the manifest from dir.
func ReadManifest(dir string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeManifest(f)
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: manifest version %d", ErrInvalidVersion, m.Version)
	}
	return &m, nil
}

func fileCRC32C(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := hash.NewCRC32C()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
