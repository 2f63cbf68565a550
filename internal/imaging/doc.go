// Package imaging holds the image plumbing shared by the augmentation
// transformations, the dataset reader and the MCP server.
//
// # Representations
//
// Images travel as image.Image. Two families are supported:
//   - boxed images: any image.Image, typically *image.Gray, *image.RGBA,
//     *image.NRGBA or *image.YCbCr as decoded from disk
//   - pixel arrays: *Array, a row-major 8-bit buffer of shape (H, W) or
//     (H, W, C) with C of 1 or 3
//
// Operations work on an origin-anchored *image.NRGBA obtained with ToNRGBA
// and hand their result to Conform, which converts it back into the
// representation of the input. A transformation therefore returns an Array
// when given an Array and a boxed image when given a boxed image.
//
// # Coordinate System
//
// (0,0) is the top-left pixel, X increases rightward and Y downward. Remap
// treats pixel centers as integer coordinates.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are
// stateless and never mutate their inputs.
package imaging
