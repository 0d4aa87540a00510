package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/internal/hash"
	"github.com/hupe1980/lexgo/resource"
)

// Committer records which snapshot of a model prefix is current. Pushes to
// shared storage go through a committer so concurrent publishers cannot
// silently clobber each other's manifest pointer.
type Committer interface {
	Commit(ctx context.Context, baseURI, snapshotID string, version int64) error
	Current(ctx context.Context, baseURI string) (string, int64, error)
}

// Remote transfers saved model directories to and from a BlobStore.
// The manifest travels last on push and first on pull, so a reader never
// observes a manifest whose files are missing.
type Remote struct {
	store      blobstore.BlobStore
	controller *resource.Controller
	committer  Committer
	baseURI    string
	parallel   int
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithTransferParallelism bounds concurrent file transfers (default 4).
func WithTransferParallelism(n int) RemoteOption {
	return func(r *Remote) {
		if n > 0 {
			r.parallel = n
		}
	}
}

// WithRemoteController attaches an IO budget to transfers.
func WithRemoteController(rc *resource.Controller) RemoteOption {
	return func(r *Remote) {
		r.controller = rc
	}
}

// WithCommitter registers the pushed snapshot under baseURI after a
// successful push. The commit is conditional on the next version being
// unclaimed, so a concurrent publisher fails instead of overwriting.
func WithCommitter(c Committer, baseURI string) RemoteOption {
	return func(r *Remote) {
		r.committer = c
		r.baseURI = baseURI
	}
}

// NewRemote creates a Remote over the given store.
func NewRemote(store blobstore.BlobStore, opts ...RemoteOption) *Remote {
	r := &Remote{store: store, parallel: 4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Push uploads the model directory at dir. The data files listed in the
// manifest upload in parallel; the manifest itself goes last.
func (r *Remote) Push(ctx context.Context, dir string) error {
	m, err := ReadManifest(dir)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for name := range m.Files {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			if err := r.controller.AcquireIO(ctx, len(data)); err != nil {
				return err
			}
			return r.store.Put(ctx, name, data)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if err := r.store.Put(ctx, ManifestFile, data); err != nil {
		return fmt.Errorf("push manifest: %w", err)
	}

	if r.committer != nil {
		_, version, err := r.committer.Current(ctx, r.baseURI)
		if err != nil {
			return fmt.Errorf("push commit: %w", err)
		}
		if err := r.committer.Commit(ctx, r.baseURI, m.SnapshotID, version+1); err != nil {
			return fmt.Errorf("push commit: %w", err)
		}
	}
	return nil
}

// Pull downloads a model into dir, fetching the manifest first and the data
// files in parallel. Every file is verified against its manifest CRC before
// the local manifest is written, so an interrupted pull never looks complete.
func (r *Remote) Pull(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	manifestData, err := r.fetch(ctx, ManifestFile)
	if err != nil {
		return fmt.Errorf("pull manifest: %w", err)
	}
	tmpManifest := filepath.Join(dir, ManifestFile+".partial")
	if err := os.WriteFile(tmpManifest, manifestData, 0644); err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpManifest) }()

	m, err := readManifestFile(tmpManifest)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for name, want := range m.Files {
		g.Go(func() error {
			data, err := r.fetch(gctx, name)
			if err != nil {
				return fmt.Errorf("pull %s: %w", name, err)
			}
			if got := hash.CRC32C(data); got != want {
				return fmt.Errorf("pull %s: %w: got 0x%08x, want 0x%08x", name, ErrChecksum, got, want)
			}
			return os.WriteFile(filepath.Join(dir, name), data, 0644)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return os.Rename(tmpManifest, filepath.Join(dir, ManifestFile))
}

func (r *Remote) fetch(ctx context.Context, name string) ([]byte, error) {
	blob, err := r.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	if err := r.controller.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, err
	}
	return blobstore.ReadAll(ctx, blob)
}

func readManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeManifest(f)
}
