// Package server exposes a trained classification model over HTTP.
//
// The server loads one model at startup and answers classification
// requests against it. It is intended to sit behind the `terraclass
// serve` command.
//
// # Endpoints
//
//   - POST /classify: classify one raster tile
//   - GET /model: manifest metadata of the loaded model
//   - GET /healthz: liveness check
//
// # Classify Requests
//
// POST /classify accepts the tile in three forms, selected by the
// request Content-Type:
//
//   - application/json: {"image": "<base64 of the encoded image>"}
//   - multipart/form-data: the file in an "image" form field
//   - anything else: the encoded image as the raw request body
//
// PNG, JPEG, and TIFF are accepted. Tiles whose dimensions differ from
// the model's training tile size are resized before feature
// extraction, so clients may send imagery at native resolution.
//
// # Responses
//
// Successful classification returns the winning label with the
// forest's vote fractions per class:
//
//	{"label": "crop", "votes": {"crop": 0.84, "water": 0.16}}
//
// Errors return a JSON envelope with a stable machine-readable code:
//
//	{"code": "invalid_image", "message": "failed to decode image: ..."}
package server
