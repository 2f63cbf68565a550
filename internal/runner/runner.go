package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	"github.com/TimofeyKaliakin/cyrill/internal/dataset"
	"github.com/TimofeyKaliakin/cyrill/internal/sink"
)

// DefaultManifest is the manifest name used when Options.Manifest is empty.
const DefaultManifest = "manifest.jsonl"

// Dispatcher is the part of *augment.Pipeline the runner drives.
type Dispatcher interface {
	DispatchAt(img image.Image, index int) (image.Image, augment.Decision, error)
}

// Options configures Run.
type Options struct {
	// Workers bounds concurrent dispatches. Values below 1 mean 1.
	Workers int

	// Progress receives a progress bar when non-nil.
	Progress io.Writer

	// Manifest names the JSON Lines manifest written to the sink.
	Manifest string

	// RunID identifies the run in the manifest. A random UUID when empty.
	RunID string
}

// Record is one manifest line.
type Record struct {
	RunID    string           `json:"run_id"`
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Label    string           `json:"label,omitempty"`
	Output   string           `json:"output"`
	Decision augment.Decision `json:"augmentation"`
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Items    int
	Applied  int
	ByName   map[string]int
	Manifest int
	Elapsed  time.Duration
}

// String renders s as a one-line report.
func (s Summary) String() string {
	names := make([]string, 0, len(s.ByName))
	for name := range s.ByName {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, humanize.Comma(int64(s.ByName[name]))))
	}
	line := fmt.Sprintf("run %s: %s items, %s augmented, manifest %s, took %s",
		s.RunID,
		humanize.Comma(int64(s.Items)),
		humanize.Comma(int64(s.Applied)),
		humanize.Bytes(uint64(s.Manifest)),
		s.Elapsed.Round(time.Millisecond))
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	return line
}

// Run dispatches every item of ds through p and stores each output in out.
// Seeded pipelines are dispatched at the dataset index, so a rerun with the
// same seed reproduces every output. The first failure cancels the run and
// no manifest is written.
func Run(ctx context.Context, ds dataset.Dataset, p Dispatcher, out sink.Sink, opts Options) (Summary, error) {
	start := time.Now()
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Manifest == "" {
		opts.Manifest = DefaultManifest
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	n := ds.Len()
	klog.V(1).Infof("runner: run %s over %d items with %d workers", opts.RunID, n, opts.Workers)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("augmenting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
		)
	}

	records := make([]Record, n)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := process(gctx, ds, p, out, i)
			if err != nil {
				return err
			}
			rec.RunID = opts.RunID
			records[i] = rec
			done.Add(1)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	sum := Summary{RunID: opts.RunID, Items: int(done.Load()), ByName: make(map[string]int)}
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return Summary{}, errors.Wrapf(err, "encoding record %d", rec.Index)
		}
		if rec.Decision.Applied {
			sum.Applied++
			sum.ByName[rec.Decision.Name]++
		}
	}
	if err := out.PutManifest(ctx, opts.Manifest, buf.Bytes()); err != nil {
		return Summary{}, errors.Wrap(err, "writing manifest")
	}
	sum.Manifest = buf.Len()
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func process(ctx context.Context, ds dataset.Dataset, p Dispatcher, out sink.Sink, i int) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	item, err := ds.Item(i)
	if err != nil {
		return Record{}, err
	}

	img, dec, err := p.DispatchAt(item.Image, i)
	if err != nil {
		return Record{}, errors.Wrapf(err, "item %d (%s)", i, item.ID)
	}

	name := OutputName(item.ID)
	if err := out.Put(ctx, name, img); err != nil {
		return Record{}, errors.Wrapf(err, "item %d (%s)", i, item.ID)
	}
	klog.V(3).Infof("runner: item %d -> %s applied=%v %s", i, name, dec.Applied, dec.Name)
	return Record{Index: i, ID: item.ID, Label: item.Label, Output: name, Decision: dec}, nil
}

// OutputName returns the stored name for an item id. Outputs are always PNG,
// so any other extension on the id is replaced.
func OutputName(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id)) + ".png"
}
