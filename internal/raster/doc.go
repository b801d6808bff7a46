// Package raster provides tile loading and preprocessing for multi-band
// aerial imagery.
//
// Tiles arrive as TIFF or PNG files with three or four bands and 8-bit or
// 16-bit samples. The package decodes them into per-band float64 planes so
// downstream feature extraction keeps the full sample depth of 16-bit
// sources; 8-bit image libraries are only used where the output medium is
// itself 8-bit (previews, montages).
//
// # Band Layout
//
// Planes are stored row-major and indexed by band constant:
//   - BandRed, BandGreen, BandBlue: the visible bands
//   - BandAlpha: the fourth band, carrying either a validity mask (alpha)
//     or near-infrared, depending on how the imagery was produced
//
// # Preprocessing Modes
//
// Two modes produce the channel planes that become feature vectors:
//   - ModeBands: the four raw planes in R, G, B, NIR order, unscaled
//   - ModeMasked: the three visible bands masked by non-zero alpha,
//     normalized to [0, 1], and compacted back to a full plane
//
// # Coordinate System
//
// Pixel (x, y) of band b lives at Band(b)[y*Width+x]. Feature vectors are
// flattened pixel-major with channels innermost, so a W×H tile with C
// channels yields exactly W*H*C features.
package raster
