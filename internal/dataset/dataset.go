package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// IndexFile is the default name of a directory's index.
const IndexFile = "index.yaml"

// Item is one dataset element.
type Item struct {
	Image image.Image
	Label string
	ID    string
}

// Dataset is an indexed collection of items.
type Dataset interface {
	Len() int
	Item(index int) (Item, error)
}

// Options configures Open.
type Options struct {
	// Split names the subset; it prefixes generated IDs. Defaults to "train".
	Split string

	// AsArray decodes images into *imaging.Array instead of boxed images.
	AsArray bool

	// Index overrides the index file name.
	Index string
}

// Entry is one line of an index file.
type Entry struct {
	File string `yaml:"file"`
	Text string `yaml:"text"`
	ID   string `yaml:"id"`
}

type index struct {
	Split string  `yaml:"split"`
	Items []Entry `yaml:"items"`
}

// Dir is a Dataset backed by a directory of images.
type Dir struct {
	root    string
	split   string
	asArray bool
	entries []Entry
}

// Open reads the dataset rooted at root. When root holds an index file its
// entries define the items in order; otherwise every PNG, JPEG and GIF in
// root is an unlabeled item, sorted by file name.
func Open(root string, opts Options) (*Dir, error) {
	if opts.Index == "" {
		opts.Index = IndexFile
	}
	d := &Dir{root: root, split: opts.Split, asArray: opts.AsArray}

	data, err := os.ReadFile(filepath.Join(root, opts.Index))
	switch {
	case err == nil:
		var idx index
		if err := yaml.Unmarshal(data, &idx); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", opts.Index)
		}
		for i, e := range idx.Items {
			if e.File == "" {
				return nil, errors.Errorf("%s: items[%d] has no file", opts.Index, i)
			}
		}
		d.entries = idx.Items
		if d.split == "" {
			d.split = idx.Split
		}
	case os.IsNotExist(err):
		if d.entries, err = scan(root); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(err, "reading %s", opts.Index)
	}

	if d.split == "" {
		d.split = "train"
	}
	klog.V(1).Infof("dataset: %s split %q has %d items", root, d.split, len(d.entries))
	return d, nil
}

func scan(root string) ([]Entry, error) {
	files, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", root)
	}
	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			entries = append(entries, Entry{File: f.Name()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })
	return entries, nil
}

// Split returns the split name used for generated IDs.
func (d *Dir) Split() string { return d.split }

// Len returns the number of items.
func (d *Dir) Len() int { return len(d.entries) }

// Item decodes the image at position i.
func (d *Dir) Item(i int) (Item, error) {
	if i < 0 || i >= len(d.entries) {
		return Item{}, errors.Errorf("index %d out of range [0, %d)", i, len(d.entries))
	}
	e := d.entries[i]
	img, err := imaging.Open(filepath.Join(d.root, e.File))
	if err != nil {
		return Item{}, errors.Wrapf(err, "item %d", i)
	}
	if d.asArray {
		img = imaging.ArrayFromImage(img)
	}
	id := e.ID
	if id == "" {
		id = DefaultID(d.split, i)
	}
	return Item{Image: img, Label: e.Text, ID: id}, nil
}

// DefaultID names item i of split when the index gives no id.
func DefaultID(split string, i int) string {
	return fmt.Sprintf("%s_%06d.png", split, i)
}
