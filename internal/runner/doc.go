// Package runner augments a whole dataset through a pipeline and stores the
// results with a manifest.
package runner
