// Package sink stores augmented images and run manifests.
//
// Dir writes into a local directory tree and Minio uploads to an
// S3-compatible bucket. Both encode images in the format named by the
// extension of the stored name.
package sink
