// Package encoding describes how wallpapers are transcoded: the closed set of
// codecs, encoder families and encode profiles, the selector that decides which
// encoder actually runs, and the ffmpeg executor that writes artifacts.
//
// Codec/encoder compatibility lives in exhaustive switches. An explicit encoder
// that a codec does not allow is an error, never a silent substitution; only
// the "auto" request probes hardware and falls back where a software path
// exists. The executor always writes to a uniquely named temporary file and
// publishes with a rename so readers never see a partial artifact.
package encoding
