// Package imaging provides the bitmap plumbing for the capture pipeline.
//
// It covers three concerns:
//   - ImageCache: thread-safe cache of decoded still frames, used by the
//     file-backed camera device.
//   - Codecs: lossless cloning, JPEG encoding at a fixed quality, Lanczos
//     rescaling and base64 PNG previews for the control server.
//   - Size fitting: ScaleFactor and FitDimensions, the single-pass estimate
//     that brings an encoded image near a byte budget.
//
// # Size Fitting
//
// Given the current encoded size S and a budget B, the scale factor is
//
//	s = 1                        if S <= B
//	s = min(1, (B/S)^beta)       otherwise
//
// and is applied identically to width and height, floored to whole pixels.
// The fitter never retries: a re-encode at the new size may land slightly
// above B and the upload endpoint is expected to tolerate that.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner.
// Rectangles are inclusive at Min and exclusive at Max.
package imaging
