// Package augment dispatches one randomly chosen transformation per image.
//
// A Pipeline is built from a validated Config: a probability of augmenting at
// all, an ordered set of named transformations, and a weight per name. Each
// call to Dispatch or DispatchAt flips the gate, draws a name from the
// normalized weights, samples that transformation's parameters and applies
// it, returning the new image together with a Decision describing what
// happened.
//
// # Determinism
//
// A seeded Pipeline derives a fresh generator from (seed, index) for every
// call, so the decision for a given index never depends on call order,
// concurrency or how many images were processed before it. An unseeded
// Pipeline draws per-call generators from a private entropy source.
//
// # Errors
//
// Configuration problems surface from NewConfig and New as
// *ConfigurationError, caller contract violations as *InvariantError, and
// failures inside a transformation as *TransformationError. Use errors.Is
// with ErrConfiguration, ErrInvariant or ErrTransformation to classify them.
package augment
