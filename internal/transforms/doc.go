// Package transforms implements the document-degradation transformations
// that the augment pipeline chooses between, plus a Registry that builds
// them by kind from configuration.
//
// Every transformation validates its options at construction, draws all of
// its randomness in SampleParams, and applies the sampled parameters as a
// pure function of the input image. Randomness that depends on the image
// size, such as a displacement field or speckle positions, is carried as a
// sampled seed so Apply stays deterministic.
//
// Outputs keep the representation of the input: an *imaging.Array stays an
// Array of the same rank and channel count, and boxed images stay boxed.
package transforms
