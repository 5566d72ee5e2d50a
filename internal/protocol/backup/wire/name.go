package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxNameLength is the largest filename the wire format can carry,
// bounded by the uint16 length prefix.
const MaxNameLength = 0xFFFF

// Name is a validated filename as carried on the wire.
//
// A Name is immutable once constructed and re-serializes to exactly the
// bytes it was built from; no normalization is applied. The backing type
// is string so values transfer between layers without copying the buffer.
//
// Validation rules (checked against the raw byte content):
//   - length 1..65535
//   - the first byte must not be a space
//   - the last byte must not be a space or a dot
//   - no byte may be NUL, '/', '\', ':', '*', '?', '"', '<', '>' or '|'
//
// The forbidden set keeps every accepted Name usable as a single path
// component on both Unix and Windows filesystems.
type Name string

// NewName validates raw and returns it as a Name.
func NewName(raw []byte) (Name, error) {
	if err := validateName(raw); err != nil {
		return "", err
	}
	return Name(raw), nil
}

// Encode writes the name as a uint16 little-endian length prefix followed
// by the raw bytes. The length check is defensive: a Name built through
// NewName or DecodeName already satisfies the bound.
func (n Name) Encode(w io.Writer) error {
	if len(n) == 0 || len(n) > MaxNameLength {
		return fmt.Errorf("name length %d out of range", len(n))
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(n))); err != nil {
		return fmt.Errorf("write name length: %w", err)
	}

	if _, err := io.WriteString(w, string(n)); err != nil {
		return fmt.Errorf("write name: %w", err)
	}

	return nil
}

// DecodeName reads one length-prefixed name from the stream and validates
// it. A short read or a validation failure fails the whole decode; no
// partial value is returned.
func DecodeName(r io.Reader) (Name, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("read name length: %w", err)
	}

	if length == 0 {
		return "", fmt.Errorf("name length cannot be 0")
	}

	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("read name: %w", err)
	}

	return NewName(raw)
}

// forbiddenNameByte reports whether b may never appear in a name.
func forbiddenNameByte(b byte) bool {
	switch b {
	case 0, '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return false
}

func validateName(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("name cannot be empty")
	}
	if len(raw) > MaxNameLength {
		return fmt.Errorf("name length %d exceeds maximum %d", len(raw), MaxNameLength)
	}

	if raw[0] == ' ' {
		return fmt.Errorf("name cannot start with a space")
	}
	if last := raw[len(raw)-1]; last == ' ' || last == '.' {
		return fmt.Errorf("name cannot end with %q", last)
	}

	for i, b := range raw {
		if forbiddenNameByte(b) {
			return fmt.Errorf("name contains forbidden byte 0x%02x at offset %d", b, i)
		}
	}

	return nil
}
