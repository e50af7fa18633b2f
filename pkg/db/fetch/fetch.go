package fetch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/zstd"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	progressbar "github.com/schollz/progressbar/v3"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

const (
	DefaultRepository = "ghcr.io/softwaredesignlab/nvip-db:latest"
	LayerMediaType    = "application/vnd.nvip.db.layer.v1+zstd"
)

type options struct {
	dbpath     string
	repository string

	noProgress bool
	debug      bool
}

type Option interface {
	apply(*options)
}

type dbpathOption string

func (o dbpathOption) apply(opts *options) {
	opts.dbpath = string(o)
}

func WithDBPath(dbpath string) Option {
	return dbpathOption(dbpath)
}

type repositoryOption string

func (o repositoryOption) apply(opts *options) {
	opts.repository = string(o)
}

func WithRepository(repository string) Option {
	return repositoryOption(repository)
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

type noProgressOption bool

func (o noProgressOption) apply(opts *options) {
	opts.noProgress = bool(o)
}

func WithNoProgress(noProgress bool) Option {
	return noProgressOption(noProgress)
}

// Fetch downloads a prebuilt boltdb database published as an OCI artifact and installs it at the
// db path. The previous file is replaced only after the download is verified.
func Fetch(opts ...Option) error {
	options := &options{
		dbpath:     utilos.DefaultDBPath(),
		repository: DefaultRepository,
		debug:      false,
		noProgress: false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	slog.Info("Fetch nvip.db", "repository", options.repository)

	ctx := context.TODO()

	ms := memory.New()

	repo, err := remote.NewRepository(options.repository)
	if err != nil {
		return errors.Wrapf(err, "create client for %s", options.repository)
	}
	if repo.Reference.Reference == "" {
		return errors.Errorf("unexpected repository format. expected: %q, actual: %q", []string{"<repository>@<digest>", "<repository>:<tag>", "<repository>:<tag>@<digest>"}, options.repository)
	}

	manifestDescriptor, err := oras.Copy(ctx, repo, repo.Reference.Reference, ms, repo.Reference.Reference, oras.DefaultCopyOptions)
	if err != nil {
		return errors.Wrapf(err, "copy from %s", options.repository)
	}

	r, err := ms.Fetch(ctx, manifestDescriptor)
	if err != nil {
		return errors.Wrap(err, "fetch manifest")
	}
	defer r.Close()

	var manifest ocispec.Manifest
	if err := json.NewDecoder(content.NewVerifyReader(r, manifestDescriptor)).Decode(&manifest); err != nil {
		return errors.Wrap(err, "decode manifest")
	}

	l, err := SelectLayer(manifest)
	if err != nil {
		return errors.Wrap(err, "select layer")
	}

	lr, err := repo.Fetch(ctx, l)
	if err != nil {
		return errors.Wrap(err, "fetch content")
	}
	defer lr.Close()

	if err := os.MkdirAll(filepath.Dir(options.dbpath), 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(options.dbpath))
	}

	tmp := options.dbpath + ".download"
	if err := download(content.NewVerifyReader(lr, l), tmp, options.noProgress); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return errors.Wrapf(err, "download to %s", tmp)
	}
	if err := os.Rename(tmp, options.dbpath); err != nil {
		return errors.Wrapf(err, "rename %s to %s", tmp, options.dbpath)
	}

	return markDownloaded(options.dbpath, options.debug)
}

// SelectLayer returns the database layer of manifest.
func SelectLayer(manifest ocispec.Manifest) (ocispec.Descriptor, error) {
	i := slices.IndexFunc(manifest.Layers, func(l ocispec.Descriptor) bool { return l.MediaType == LayerMediaType })
	if i < 0 {
		return ocispec.Descriptor{}, errors.Errorf("not found %s layer, actual layers: %#v", LayerMediaType, manifest.Layers)
	}
	return manifest.Layers[i], nil
}

func download(r io.Reader, path string, noProgress bool) error {
	d, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "new zstd reader")
	}
	defer d.Close()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	pb := func() *progressbar.ProgressBar {
		if noProgress {
			return progressbar.DefaultBytesSilent(-1)
		}
		return progressbar.DefaultBytes(-1, "downloading")
	}()
	defer pb.Finish()

	if _, err := d.WriteTo(io.MultiWriter(f, pb)); err != nil {
		return errors.Wrapf(err, "write to %s", path)
	}
	return nil
}

func markDownloaded(path string, debug bool) error {
	dbc, err := (&common.Config{
		Type:  "boltdb",
		Path:  path,
		Debug: debug,
	}).New()
	if err != nil {
		return errors.Wrapf(err, "new db connection")
	}
	if err := dbc.Open(); err != nil {
		return errors.Wrapf(err, "db open")
	}
	defer dbc.Close()

	metadata, err := dbc.GetMetadata()
	if err != nil || metadata == nil {
		return errors.Wrapf(err, "get metadata")
	}
	if metadata.SchemaVersion != common.SchemaVersion {
		return errors.Errorf("unexpected schema version. expected: %d, actual: %d", common.SchemaVersion, metadata.SchemaVersion)
	}

	metadata.Downloaded = func() *time.Time {
		t := time.Now().UTC()
		return &t
	}()
	if err := dbc.PutMetadata(*metadata); err != nil {
		return errors.Wrapf(err, "put metadata")
	}

	return nil
}
