// Package ocr provides the label recognition engine used by the scanner.
//
// The engine wraps Tesseract (via gosseract/v2) restricted to a digit
// whitelist. Frames are converted to grayscale and contrast-boosted with
// bild before they are handed to Tesseract as PNG bytes.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A custom tessdata directory can be set with ocr.tessdata_prefix in the
// config file or BATCAPTURE_TESSDATA_PREFIX.
//
// # Errors
//
// NewEngine returns errors wrapped in pipeline.ErrEngineSetup. Recognize
// returns errors wrapped in pipeline.ErrRecognition; the scanner treats
// those as a missed frame.
//
// An Engine is not meant for parallel use. Calls are serialized internally,
// matching the scanner's one-frame-at-a-time loop.
package ocr
