// Package forest implements a random forest classifier over continuous
// pixel features.
//
// Trees are CART-style: binary splits on midpoint thresholds chosen by
// gini or entropy gain, with optional per-split feature subsampling.
// The forest trains trees concurrently on bootstrap resamples and
// predicts by majority vote. All randomness flows from explicit seeds,
// so a seeded training run reproduces exactly.
//
// Fitted models serialize with their preprocessing manifest so a saved
// model knows how to turn a tile into the feature vector it was trained
// on. See Model.
package forest
