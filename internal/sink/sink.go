package sink

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Sink receives the outputs of a batch run.
type Sink interface {
	// Put stores img under name.
	Put(ctx context.Context, name string, img image.Image) error

	// PutManifest stores an encoded manifest under name.
	PutManifest(ctx context.Context, name string, data []byte) error
}

// Dir writes outputs below a local directory.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a Dir sink for it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", root)
	}
	return &Dir{root: root}, nil
}

// Root returns the output directory.
func (d *Dir) Root() string { return d.root }

// Put saves img in the format implied by the extension of name.
func (d *Dir) Put(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.path(name)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "saving %s", name)
	}
	return nil
}

// PutManifest writes data to name.
func (d *Dir) PutManifest(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.path(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", name)
}

func (d *Dir) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", errors.Errorf("output name %q escapes the output directory", name)
	}
	path := filepath.Join(d.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "creating directory for %s", name)
	}
	return path, nil
}
