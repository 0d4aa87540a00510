package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/blobstore"
)

func TestRemote_PushPull(t *testing.T) {
	ctx := context.Background()
	srcDir := writeModelDir(t)

	store := blobstore.NewMemoryStore()
	remote := NewRemote(store, WithTransferParallelism(2))
	require.NoError(t, remote.Push(ctx, srcDir))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	dstDir := t.TempDir()
	require.NoError(t, remote.Pull(ctx, dstDir))

	for _, name := range []string{StringsFile, LexemesFile, ManifestFile} {
		want, err := os.ReadFile(filepath.Join(srcDir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dstDir, name))
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	m, err := ReadManifest(dstDir)
	require.NoError(t, err)
	require.NoError(t, m.VerifyFile(dstDir, LexemesFile))
}

type fakeCommitter struct {
	baseURI    string
	snapshotID string
	version    int64
	current    int64
	err        error
}

func (f *fakeCommitter) Commit(_ context.Context, baseURI, snapshotID string, version int64) error {
	if f.err != nil {
		return f.err
	}
	f.baseURI = baseURI
	f.snapshotID = snapshotID
	f.version = version
	return nil
}

func (f *fakeCommitter) Current(context.Context, string) (string, int64, error) {
	return "", f.current, nil
}

func TestRemote_PushCommits(t *testing.T) {
	ctx := context.Background()
	srcDir := writeModelDir(t)
	m, err := ReadManifest(srcDir)
	require.NoError(t, err)

	fc := &fakeCommitter{current: 3}
	remote := NewRemote(blobstore.NewMemoryStore(), WithCommitter(fc, "s3://models/en"))
	require.NoError(t, remote.Push(ctx, srcDir))

	assert.Equal(t, "s3://models/en", fc.baseURI)
	assert.Equal(t, m.SnapshotID, fc.snapshotID)
	assert.Equal(t, int64(4), fc.version)
}

func TestRemote_PushCommitConflict(t *testing.T) {
	srcDir := writeModelDir(t)

	fc := &fakeCommitter{err: errors.New("version 1 exists")}
	remote := NewRemote(blobstore.NewMemoryStore(), WithCommitter(fc, "s3://models/en"))
	err := remote.Push(context.Background(), srcDir)
	assert.ErrorContains(t, err, "push commit")
}

func TestRemote_PullVerifiesChecksums(t *testing.T) {
	ctx := context.Background()
	srcDir := writeModelDir(t)

	store := blobstore.NewMemoryStore()
	remote := NewRemote(store)
	require.NoError(t, remote.Push(ctx, srcDir))

	// Corrupt a data blob after upload; the pull must refuse to complete.
	require.NoError(t, store.Put(ctx, LexemesFile, []byte("corrupted")))

	dstDir := t.TempDir()
	err := remote.Pull(ctx, dstDir)
	assert.ErrorIs(t, err, ErrChecksum)

	// The manifest was never finalized locally.
	_, err = os.Stat(filepath.Join(dstDir, ManifestFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRemote_PullMissingManifest(t *testing.T) {
	remote := NewRemote(blobstore.NewMemoryStore())
	err := remote.Pull(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
