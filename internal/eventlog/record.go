package eventlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorrupt is returned when a record fails its checksum.
var ErrCorrupt = errors.New("corrupt event record")

const (
	crcMaskDelta = 0xa282ead8
	headerSize   = 12
	footerSize   = 4

	// maxRecordSize bounds the payload of a single record.
	maxRecordSize = 256 << 20
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(b []byte) uint32 {
	crc := crc32.Checksum(b, castagnoli)
	return ((crc >> 15) | (crc << 17)) + crcMaskDelta
}

// writeRecord frames data as a TFRecord:
// uint64 length | masked crc32c(length) | data | masked crc32c(data).
func writeRecord(w io.Writer, data []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(data)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(data))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write(footer[:])
	return err
}

type recordReader struct {
	r *bufio.Reader
}

func newRecordReader(r io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(r)}
}

// next returns the next record payload. io.EOF is returned at a clean end of
// input and also when the last record is only partially written.
func (rr *recordReader) next() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(rr.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	if got, want := binary.LittleEndian.Uint32(header[8:]), maskedCRC(header[:8]); got != want {
		return nil, fmt.Errorf("%w: length checksum mismatch", ErrCorrupt)
	}

	length := binary.LittleEndian.Uint64(header[:8])
	if length > maxRecordSize {
		return nil, fmt.Errorf("%w: record length %d exceeds %d", ErrCorrupt, length, maxRecordSize)
	}
	data := make([]byte, length+footerSize)
	if _, err := io.ReadFull(rr.r, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	payload, footer := data[:length], data[length:]
	if got, want := binary.LittleEndian.Uint32(footer), maskedCRC(payload); got != want {
		return nil, fmt.Errorf("%w: data checksum mismatch", ErrCorrupt)
	}
	return payload, nil
}
