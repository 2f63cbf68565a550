package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/config"
	"github.com/TimofeyKaliakin/cyrill/internal/server"
	"github.com/TimofeyKaliakin/cyrill/internal/transforms"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("augment-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("augment-mcp - MCP server for document image augmentation")
			fmt.Println()
			fmt.Println("Usage: augment-mcp [-config pipeline.yaml] [klog flags]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println("  -config FILE     Pipeline configuration (default $CYRILL_PIPELINE)")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  CYRILL_PIPELINE=FILE       Pipeline configuration file")
			fmt.Println("  CYRILL_LOG_LEVEL=debug     Enable debug logging")
			fmt.Println("  CYRILL_PIPELINE__<KEY>=VAL Override seed, p_aug or return_params, e.g. CYRILL_PIPELINE__P_AUG=0.5")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	// klog writes to stderr; stdout is for MCP protocol
	klog.InitFlags(nil)
	configPath := flag.String("config", os.Getenv("CYRILL_PIPELINE"), "Pipeline configuration file (YAML)")
	flag.Parse()

	if os.Getenv("CYRILL_LOG_LEVEL") == "debug" {
		_ = flag.Set("v", "2")
		klog.Infof("Augment MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	if *configPath == "" {
		klog.Exit("no pipeline configuration: pass -config or set CYRILL_PIPELINE")
	}

	reg := transforms.Default()
	p, err := config.Pipeline(*configPath, reg)
	if err != nil {
		klog.Exitf("Loading pipeline: %v", err)
	}

	server.Version = Version
	srv := server.New(p, reg.Kinds())
	if err := srv.Run(); err != nil {
		klog.Fatalf("Server error: %v", err)
	}
}
