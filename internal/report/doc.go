// Package report presents training results: text tables for metrics,
// a labeled montage image for visual spot checks, and band statistics
// for tile inspection.
package report
