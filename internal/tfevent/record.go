// Package tfevent writes and reads TensorBoard event files: TFRecord-framed
// tensorflow.Event protobufs carrying scalar, text, image, histogram and audio
// summaries, plus the projector files used for embeddings.
package tfevent

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorruptRecord is returned when a record's length or payload checksum
// does not match.
var ErrCorruptRecord = errors.New("corrupt tfrecord")

// maxRecordLen bounds a single record so a corrupt length field cannot force
// a huge allocation.
const maxRecordLen = 1 << 30

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC is the TFRecord checksum: CRC-32C rotated right by 15 bits plus a
// constant.
func maskedCRC(b []byte) uint32 {
	c := crc32.Checksum(b, castagnoli)
	return ((c >> 15) | (c << 17)) + 0xa282ead8
}

// RecordWriter frames payloads as TFRecords.
type RecordWriter struct {
	w io.Writer
}

// NewRecordWriter creates a RecordWriter on top of w.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// WriteRecord writes one record: little-endian uint64 length, masked CRC of
// the length, payload, masked CRC of the payload.
func (rw *RecordWriter) WriteRecord(data []byte) error {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(data))

	if _, err := rw.w.Write(header[:]); err != nil {
		return fmt.Errorf("writing record header: %w", err)
	}
	if _, err := rw.w.Write(data); err != nil {
		return fmt.Errorf("writing record data: %w", err)
	}
	if _, err := rw.w.Write(footer[:]); err != nil {
		return fmt.Errorf("writing record footer: %w", err)
	}
	return nil
}

// RecordReader reads TFRecords written by RecordWriter.
type RecordReader struct {
	r io.Reader
}

// NewRecordReader creates a RecordReader on top of r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r}
}

// ReadRecord returns the next payload. It returns io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF when the last record is incomplete, which
// is normal for a file still being written.
func (rr *RecordReader) ReadRecord() ([]byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(rr.r, header[:]); err != nil {
		return nil, err
	}
	if maskedCRC(header[:8]) != binary.LittleEndian.Uint32(header[8:]) {
		return nil, fmt.Errorf("%w: length checksum mismatch", ErrCorruptRecord)
	}

	length := binary.LittleEndian.Uint64(header[:8])
	if length > maxRecordLen {
		return nil, fmt.Errorf("%w: record length %d exceeds limit", ErrCorruptRecord, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(rr.r, data); err != nil {
		return nil, unexpected(err)
	}
	var footer [4]byte
	if _, err := io.ReadFull(rr.r, footer[:]); err != nil {
		return nil, unexpected(err)
	}
	if maskedCRC(data) != binary.LittleEndian.Uint32(footer[:]) {
		return nil, fmt.Errorf("%w: data checksum mismatch", ErrCorruptRecord)
	}
	return data, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
