// Command augment runs every image of a dataset through an augmentation
// pipeline and stores the results with a JSON Lines manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	"github.com/TimofeyKaliakin/cyrill/internal/config"
	"github.com/TimofeyKaliakin/cyrill/internal/dataset"
	"github.com/TimofeyKaliakin/cyrill/internal/runner"
	"github.com/TimofeyKaliakin/cyrill/internal/sink"
	"github.com/TimofeyKaliakin/cyrill/internal/telemetry"
	"github.com/TimofeyKaliakin/cyrill/internal/transforms"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagConfig      = flag.String("config", "", "Pipeline configuration file (YAML). Required.")
	flagData        = flag.String("data", "", "Dataset directory. Required.")
	flagSplit       = flag.String("split", "", "Split name used for generated item ids. Defaults to the index split or \"train\".")
	flagOut         = flag.String("out", "augmented", "Output directory. Ignored when -bucket is set.")
	flagBucket      = flag.String("bucket", "", "Upload to this bucket instead of -out. Connection settings come from CYRILL_MINIO_* variables.")
	flagWorkers     = flag.Int("workers", runtime.NumCPU(), "Number of images augmented concurrently.")
	flagArray       = flag.Bool("array", false, "Decode images into dense arrays before augmenting.")
	flagMetricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090.")
	flagVersion     = flag.Bool("version", false, "Print version information and exit.")
)

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -config pipeline.yaml -data DIR [-out DIR | -bucket NAME] [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *flagVersion {
		fmt.Printf("augment %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	if err := run(); err != nil {
		klog.Exitf("augment: %v", err)
	}
	klog.Flush()
}

func run() error {
	if *flagConfig == "" || *flagData == "" {
		flag.Usage()
		return errors.New("-config and -data are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extra []augment.Option
	if *flagMetricsAddr != "" {
		metrics := telemetry.NewMetrics()
		extra = append(extra, augment.WithObserver(metrics.Observe))
		go func() {
			if err := metrics.Serve(ctx, *flagMetricsAddr); err != nil {
				klog.Errorf("metrics server: %v", err)
			}
		}()
	}

	p, err := config.Pipeline(*flagConfig, transforms.Default(), extra...)
	if err != nil {
		return err
	}

	ds, err := dataset.Open(*flagData, dataset.Options{Split: *flagSplit, AsArray: *flagArray})
	if err != nil {
		return err
	}

	out, err := openSink(ctx)
	if err != nil {
		return err
	}

	sum, err := runner.Run(ctx, ds, p, out, runner.Options{
		Workers:  *flagWorkers,
		Progress: os.Stderr,
	})
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}

func openSink(ctx context.Context) (sink.Sink, error) {
	if *flagBucket == "" {
		return sink.NewDir(*flagOut)
	}
	cfg, err := sink.MinioConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Bucket = *flagBucket
	return sink.NewMinio(ctx, cfg)
}
