// Package server exposes the augmentation pipeline as an MCP (Model Context
// Protocol) server.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin
// and one response per line on stdout. Logs go to stderr through klog so they
// never interleave with responses.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Tools
//
//   - image_load: Load an image and report its metadata
//   - augment_list: Describe the pipeline (transformations, weights, p_aug, seed)
//   - augment_image: Dispatch one image through the pipeline
//   - augment_preview: Apply one named transformation with freshly sampled parameters
//
// augment_image and augment_preview return the decision (or parameters) and
// either a base64 PNG or, when output_path is given, the written file path.
//
// # Image Caching
//
// Source images are cached by path and reloaded when the file changes on
// disk. A tool writing output_path evicts that path. The pipeline never
// mutates its input, so cached images are shared safely.
//
// # Error Handling
//
// Tool failures are JSON-RPC errors with code -32000 and the Go error string
// as data. Malformed tools/call parameters return -32602.
//
// # Usage
//
//	p, err := config.Pipeline("pipeline.yaml", transforms.Default())
//	if err != nil {
//	    klog.Fatal(err)
//	}
//	if err := server.New(p, transforms.Default().Kinds()).Run(); err != nil {
//	    klog.Fatal(err)
//	}
package server
