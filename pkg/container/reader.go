package container

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
)

// Reader streams samples back out of a container. It validates the header
// on construction and decodes records one at a time, so arbitrarily large
// recordings can be read with constant memory.
type Reader struct {
	r   *bufio.Reader
	hdr *Header
}

// NewReader reads and validates the container header, leaving the reader
// positioned at the first record.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	hdr, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, hdr: hdr}, nil
}

// Header returns the container header read at construction.
func (r *Reader) Header() *Header { return r.hdr }

// Next returns the next sample in the body. It returns io.EOF at a clean
// record boundary and ErrTruncated when the stream ends mid-record.
func (r *Reader) Next() (sample.Sample, error) {
	if r.hdr.DataType == sample.Processed {
		return r.nextProcessed()
	}

	buf := make([]byte, RecordSize(r.hdr.DataType))
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, eofOr(err)
	}
	switch r.hdr.DataType {
	case sample.EEG:
		return decodeEEG(buf), nil
	case sample.PPG:
		return decodePPG(buf), nil
	case sample.ACC:
		return decodeACC(buf), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTypeTag, r.hdr.DataType)
}

func (r *Reader) nextProcessed() (sample.Sample, error) {
	var l [4]byte
	if _, err := io.ReadFull(r.r, l[:]); err != nil {
		return nil, eofOr(err)
	}
	n := binary.LittleEndian.Uint32(l[:])
	if n > MaxProcessedPayload {
		return nil, fmt.Errorf("container: processed record length %d exceeds limit", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		// Any EOF after the length prefix means the record body is cut off.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var s sample.ProcessedSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode processed record: %w", err)
	}
	return s, nil
}

// eofOr passes a clean EOF through and maps a partial read to ErrTruncated.
func eofOr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("read record: %w", err)
}
