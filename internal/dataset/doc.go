// Package dataset reads labeled page images from disk for batch
// augmentation.
//
// A dataset directory either carries an index.yaml listing files, labels and
// ids, or is scanned for PNG, JPEG and GIF files in name order.
package dataset
