// Package wire implements the two variable-length primitives of the
// backup protocol: length-prefixed payloads and validated filenames.
//
// All multi-byte integers on the wire are little-endian and unsigned.
// Decoding works on an io.Reader one pass with no backtracking; a short
// stream fails the decode without producing a value.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// MaxPayloadSize is the largest payload the wire format can carry,
// bounded by the uint32 length prefix.
const MaxPayloadSize = math.MaxUint32

// Payload is an immutable byte blob carried in a request or response.
//
// The zero value is a valid empty payload. Payloads transfer between
// layers by handing over ownership of the backing slice; callers must not
// mutate a slice after constructing a Payload from it, nor the slice
// returned by Bytes.
type Payload struct {
	data []byte
}

// NewPayload wraps data as a Payload. It fails if the byte count exceeds
// the uint32 length prefix, which is only reachable on 64-bit platforms
// with slices over 4 GiB.
func NewPayload(data []byte) (Payload, error) {
	if uint64(len(data)) > MaxPayloadSize {
		return Payload{}, fmt.Errorf("payload size %d exceeds maximum %d", len(data), uint64(MaxPayloadSize))
	}
	return Payload{data: data}, nil
}

// Bytes returns the payload content. The returned slice is the backing
// buffer; treat it as read-only.
func (p Payload) Bytes() []byte {
	return p.data
}

// Size returns the payload length in bytes.
func (p Payload) Size() uint32 {
	return uint32(len(p.data))
}

// Encode writes the payload as a uint32 little-endian length prefix
// followed by the raw bytes.
func (p Payload) Encode(w io.Writer) error {
	if uint64(len(p.data)) > MaxPayloadSize {
		return fmt.Errorf("payload size %d exceeds maximum %d", len(p.data), uint64(MaxPayloadSize))
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(p.data))); err != nil {
		return fmt.Errorf("write payload size: %w", err)
	}

	if _, err := w.Write(p.data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// DecodePayload reads one length-prefixed payload from the stream. The
// stream closing before the declared length is fully read fails the
// decode.
func DecodePayload(r io.Reader) (Payload, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return Payload{}, fmt.Errorf("read payload size: %w", err)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Payload{}, fmt.Errorf("read payload: %w", err)
	}

	return Payload{data: data}, nil
}

// WriteFile materializes the payload into a file, creating it or
// truncating prior content. The written file is byte-identical to the
// payload.
func (p Payload) WriteFile(path string) error {
	if err := os.WriteFile(path, p.data, 0644); err != nil {
		return fmt.Errorf("write payload to %s: %w", path, err)
	}
	return nil
}

// ReadPayloadFile reads a whole file into a Payload. It fails if the file
// size exceeds what the uint32 length prefix can express.
func ReadPayloadFile(path string) (Payload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Payload{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxPayloadSize {
		return Payload{}, fmt.Errorf("file %s size %d exceeds maximum payload size", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read %s: %w", path, err)
	}

	return NewPayload(data)
}
