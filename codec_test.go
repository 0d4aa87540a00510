package lexgo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/persistence"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src, err := New()
	require.NoError(t, err)

	for _, s := range []string{"Apple", "banana", "42"} {
		_, err := src.GetOrCreate(s)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, src.ExportLexemes(&buf))

	// The binary format carries orth ids, not strings, so the importer needs
	// the same string store.
	dst, err := New(WithStringStore(src.Strings()))
	require.NoError(t, err)
	require.NoError(t, dst.ImportLexemes(&buf))
	assert.Equal(t, src.Len(), dst.Len())

	want, err := src.GetOrCreate("Apple")
	require.NoError(t, err)
	got, err := dst.GetOrCreate("Apple")
	require.NoError(t, err)
	assert.Equal(t, want.Orth, got.Orth)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Flags, got.Flags)
	assert.Equal(t, want.Lower, got.Lower)
	assert.Equal(t, want.Shape, got.Shape)
	assert.Equal(t, want.Prob, got.Prob)
	assert.False(t, got.HasVector())

	// Insertion ranks continue past the imported records.
	next, err := dst.GetOrCreate("cherry")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.ID)
}

func TestImportLexemes_Checksum(t *testing.T) {
	src, err := New()
	require.NoError(t, err)
	_, err = src.GetOrCreate("apple")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportLexemes(&buf))

	data := buf.Bytes()
	data[persistence.HeaderSize+8] ^= 0xFF

	dst, err := New(WithStringStore(src.Strings()))
	require.NoError(t, err)
	err = dst.ImportLexemes(bytes.NewReader(data))
	assert.ErrorIs(t, err, persistence.ErrChecksum)
}

func TestImportLexemes_BadMagic(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	err = v.ImportLexemes(bytes.NewReader(make([]byte, persistence.HeaderSize)))
	assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
}

func TestImportLexemes_StringMismatch(t *testing.T) {
	src, err := New()
	require.NoError(t, err)
	_, err = src.GetOrCreate("apple")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportLexemes(&buf))

	// A fresh store has no idea what the exported orth ids mean.
	dst, err := New()
	require.NoError(t, err)
	err = dst.ImportLexemes(&buf)
	var mismatch *ErrStringMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestSaveLoadDirectory(t *testing.T) {
	dir := t.TempDir()

	src, err := New()
	require.NoError(t, err)
	for _, s := range []string{"Apple", "banana"} {
		_, err := src.GetOrCreate(s)
		require.NoError(t, err)
	}
	require.NoError(t, src.SaveToDirectory(dir))

	for _, name := range []string{
		persistence.StringsFile,
		persistence.LexemesFile,
		persistence.ManifestFile,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	m, err := persistence.ReadManifest(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, m.SnapshotID)
	assert.Equal(t, uint64(2), m.Records)

	dst, err := LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, dst.Len())

	apple, err := dst.GetOrCreate("Apple")
	require.NoError(t, err)
	shape, err := dst.Strings().String(apple.Shape)
	require.NoError(t, err)
	assert.Equal(t, "Xxxx", shape)
}

func TestLoadFromDirectory_Tampered(t *testing.T) {
	dir := t.TempDir()

	src, err := New()
	require.NoError(t, err)
	_, err = src.GetOrCreate("apple")
	require.NoError(t, err)
	require.NoError(t, src.SaveToDirectory(dir))

	path := filepath.Join(dir, persistence.LexemesFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-5] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = LoadFromDirectory(dir)
	assert.ErrorIs(t, err, persistence.ErrChecksum)
}

func TestSaveLoadDirectory_WithVectors(t *testing.T) {
	dir := t.TempDir()

	src, err := New()
	require.NoError(t, err)
	_, err = src.LoadVectors(strings.NewReader("apple 1 2 3\n"))
	require.NoError(t, err)
	require.NoError(t, src.SaveToDirectory(dir))

	dst, err := LoadFromDirectory(dir)
	require.NoError(t, err)

	// The lexeme codec does not carry vector data, only the width.
	assert.Equal(t, 3, dst.VectorsLength())
	apple, err := dst.GetOrCreate("apple")
	require.NoError(t, err)
	assert.False(t, apple.HasVector())
	assert.Equal(t, []float32{0, 0, 0}, apple.Vector())
}
