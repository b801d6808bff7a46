// Package dataset assembles labeled training samples from a directory of
// raster tiles.
//
// A dataset is described by a map file: one row per tile, each row naming
// the tile image and its annotation file relative to the data directory.
// Annotations are Pascal VOC XML; the class label is the text of the last
// name element in the document.
//
// Loading decodes tiles concurrently, applies the configured
// preprocessing mode and augmentations, and produces one Sample per tile
// variant. Sample order is deterministic regardless of how the concurrent
// loads interleave, so seeded train/test splits reproduce exactly.
package dataset
