package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
)

// Magic identifies a LNKB container stream.
var Magic = [...]byte{'L', 'N', 'K', 'B'}

const (
	VersionMajor = 1
	VersionMinor = 0

	// HeaderSize is the fixed byte length of the container header:
	// magic (4) + version (2) + type tag (8) + creation timestamp (8).
	HeaderSize = 22

	typeTagSize = 8
)

var (
	// ErrBadMagic means the stream does not start with the LNKB magic.
	ErrBadMagic = errors.New("container: bad magic")
	// ErrUnknownTypeTag means the header names no known sample variant.
	ErrUnknownTypeTag = errors.New("container: unknown type tag")
	// ErrTruncated means the body ends in the middle of a record.
	ErrTruncated = errors.New("container: truncated record")
)

// Header is the fixed preamble written once at the start of a container.
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	DataType     sample.DataType
	CreatedAt    uint64 // ms since epoch
}

// NewHeader returns a current-version header for one recording stream.
func NewHeader(dt sample.DataType, createdAt uint64) *Header {
	return &Header{
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		DataType:     dt,
		CreatedAt:    createdAt,
	}
}

// AppendTo appends the encoded header to dst and returns the extended slice.
// The type tag holds the first 8 ASCII bytes of the data type name, NUL
// right-padded; "processed" truncates to "processe".
func (h *Header) AppendTo(dst []byte) []byte {
	dst = append(dst, Magic[:]...)
	dst = append(dst, h.VersionMajor, h.VersionMinor)

	var tag [typeTagSize]byte
	copy(tag[:], h.DataType)
	dst = append(dst, tag[:]...)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], h.CreatedAt)
	return append(dst, ts[:]...)
}

// WriteTo writes the encoded header to w, reporting the bytes written.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.AppendTo(make([]byte, 0, HeaderSize)))
	return int64(n), err
}

// ReadHeader parses and validates a container header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("read container header: %w", err)
	}
	if !bytes.Equal(buf[0:4], Magic[:]) {
		return nil, fmt.Errorf("%w: % X", ErrBadMagic, buf[0:4])
	}

	h := &Header{
		VersionMajor: buf[4],
		VersionMinor: buf[5],
		CreatedAt:    binary.LittleEndian.Uint64(buf[14:22]),
	}
	if h.VersionMajor != VersionMajor {
		return nil, fmt.Errorf("container: unsupported version %d.%d", h.VersionMajor, h.VersionMinor)
	}

	dt, err := dataTypeFromTag(buf[6:14])
	if err != nil {
		return nil, err
	}
	h.DataType = dt
	return h, nil
}

// dataTypeFromTag maps the NUL-padded (possibly truncated) 8-byte tag back
// to its data type.
func dataTypeFromTag(tag []byte) (sample.DataType, error) {
	name := string(bytes.TrimRight(tag, "\x00"))
	switch name {
	case "eeg":
		return sample.EEG, nil
	case "ppg":
		return sample.PPG, nil
	case "acc":
		return sample.ACC, nil
	case "processe": // "processed" clipped to the 8-byte tag field
		return sample.Processed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTypeTag, name)
}
