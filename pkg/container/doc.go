// Package container implements the LNKB binary container, the compact
// on-disk encoding for LINK BAND sensor recordings.
//
// A container is a fixed 22-byte header followed by back-to-back sample
// records with no delimiters and no footer:
//
//	LNKB (4) | version (2) | type tag (8) | created ms (8) | records...
//
// EEG, PPG and ACC records are fixed-size (20, 16 and 24 bytes), so the
// body is self-terminating once the type tag is known; processed records
// carry a uint32 length prefix followed by that many bytes of UTF-8 JSON.
// All multi-byte fields are little-endian. The format has no checksum;
// integrity is the sink's responsibility.
package container
