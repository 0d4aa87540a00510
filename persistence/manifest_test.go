package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StringsFile), []byte(`["","apple"]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LexemesFile), []byte("record data"), 0644))

	m := NewManifest(1, 0)
	require.NoError(t, m.AddFile(dir, StringsFile))
	require.NoError(t, m.AddFile(dir, LexemesFile))
	require.NoError(t, WriteManifest(dir, m))
	return dir
}

func TestManifest_RoundTrip(t *testing.T) {
	dir := writeModelDir(t)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, m.Version)
	assert.NotEmpty(t, m.SnapshotID)
	assert.Equal(t, uint64(1), m.Records)
	assert.Len(t, m.Files, 2)

	require.NoError(t, m.VerifyFile(dir, StringsFile))
	require.NoError(t, m.VerifyFile(dir, LexemesFile))
}

func TestManifest_VerifyDetectsTampering(t *testing.T) {
	dir := writeModelDir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, LexemesFile), []byte("tampered"), 0644))

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.ErrorIs(t, m.VerifyFile(dir, LexemesFile), ErrChecksum)
}

func TestManifest_VerifyUnknownFile(t *testing.T) {
	dir := writeModelDir(t)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Error(t, m.VerifyFile(dir, "nope.bin"))
}

func TestManifest_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version": 99}`), 0644))

	_, err := ReadManifest(dir)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}
