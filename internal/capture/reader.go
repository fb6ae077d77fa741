package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Reader is the stream contract consumed by the correlation engine.
//
// ReadSingle returns the next record in stream order. At end of stream it
// returns io.EOF; that is ordinary termination of the stream, never a
// failure. Each reader is exclusively owned by one side (pre or post) for
// the duration of a run.
type Reader interface {
	ReadSingle() (Record, error)
	Close() error
}

// mscapRecordSize is the on-disk size of one compact binary record:
// a little-endian uint32 identifier, 4 reserved bytes, and a uint64
// timestamp.
const mscapRecordSize = 16

// MSCapReader reads the compact fixed-layout binary capture format. Each
// record carries an embedded identifier, so lookups need no payload hashing.
type MSCapReader struct {
	f   *os.File
	br  *bufio.Reader
	buf [mscapRecordSize]byte
}

// OpenMSCap opens a compact binary capture file for reading.
func OpenMSCap(path string) (*MSCapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	return &MSCapReader{f: f, br: bufio.NewReaderSize(f, 1<<16)}, nil
}

// ReadSingle returns the next record, or io.EOF when the stream is
// exhausted. A trailing partial record is reported as a corruption error,
// not as end of stream.
func (r *MSCapReader) ReadSingle() (Record, error) {
	_, err := io.ReadFull(r.br, r.buf[:])
	if err == io.EOF {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, fmt.Errorf("truncated capture record: %w", err)
	}
	return Record{
		ID:        uint64(binary.LittleEndian.Uint32(r.buf[0:4])),
		Timestamp: binary.LittleEndian.Uint64(r.buf[8:16]),
	}, nil
}

// Close closes the underlying file.
func (r *MSCapReader) Close() error {
	return r.f.Close()
}

// WriteMSCapRecord writes one record in the compact binary layout. It is the
// inverse of MSCapReader's decoding and is used by the pacer's stimulus
// bookkeeping and by tests crafting capture fixtures.
func WriteMSCapRecord(w io.Writer, rec Record) error {
	var buf [mscapRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rec.ID))
	binary.LittleEndian.PutUint64(buf[8:16], rec.Timestamp)
	_, err := w.Write(buf[:])
	return err
}
