package backup

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/packrat/internal/protocol/backup/wire"
)

// Response is one protocol response. Responses are only ever constructed
// as the result of processing a request; the server never reads one from
// the wire.
//
// Encode writes the 3-byte header (version u8, status u16 little-endian)
// followed by the variant's extra fields in the fixed order name, then
// payload. The first short write aborts the encode.
type Response interface {
	Status() Status
	Encode(w io.Writer) error
}

// SuccessRestoreResponse carries a restored file back to the client.
type SuccessRestoreResponse struct {
	Name    wire.Name
	Payload wire.Payload
}

// SuccessListResponse carries a directory listing. Name is the advisory
// random name, Payload the newline-terminated entry names.
type SuccessListResponse struct {
	Name    wire.Name
	Payload wire.Payload
}

// SuccessSaveOrDeleteResponse acknowledges a save or a delete; the two
// operations share one status code.
type SuccessSaveOrDeleteResponse struct {
	Name wire.Name
}

// ErrorNoFileResponse reports a known client asking for an unknown name.
type ErrorNoFileResponse struct {
	Name wire.Name
}

// ErrorNoClientResponse reports an unknown (or empty) client namespace.
type ErrorNoClientResponse struct{}

// ErrorGeneralResponse reports any failure that is not a domain outcome:
// parse errors, storage I/O failures, panics.
type ErrorGeneralResponse struct{}

func (r *SuccessRestoreResponse) Status() Status      { return StatusSuccessRestore }
func (r *SuccessListResponse) Status() Status         { return StatusSuccessList }
func (r *SuccessSaveOrDeleteResponse) Status() Status { return StatusSuccessSaveOrDelete }
func (r *ErrorNoFileResponse) Status() Status         { return StatusErrorNoFile }
func (r *ErrorNoClientResponse) Status() Status       { return StatusErrorNoClient }
func (r *ErrorGeneralResponse) Status() Status        { return StatusErrorGeneral }

// encodeHeader writes the shared response header.
func encodeHeader(w io.Writer, status Status) error {
	header := struct {
		Version uint8
		Status  uint16
	}{Version: Version, Status: uint16(status)}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write response header: %w", err)
	}
	return nil
}

func (r *SuccessRestoreResponse) Encode(w io.Writer) error {
	if err := encodeHeader(w, r.Status()); err != nil {
		return err
	}
	if err := r.Name.Encode(w); err != nil {
		return err
	}
	return r.Payload.Encode(w)
}

func (r *SuccessListResponse) Encode(w io.Writer) error {
	if err := encodeHeader(w, r.Status()); err != nil {
		return err
	}
	if err := r.Name.Encode(w); err != nil {
		return err
	}
	return r.Payload.Encode(w)
}

func (r *SuccessSaveOrDeleteResponse) Encode(w io.Writer) error {
	if err := encodeHeader(w, r.Status()); err != nil {
		return err
	}
	return r.Name.Encode(w)
}

func (r *ErrorNoFileResponse) Encode(w io.Writer) error {
	if err := encodeHeader(w, r.Status()); err != nil {
		return err
	}
	return r.Name.Encode(w)
}

func (r *ErrorNoClientResponse) Encode(w io.Writer) error {
	return encodeHeader(w, r.Status())
}

func (r *ErrorGeneralResponse) Encode(w io.Writer) error {
	return encodeHeader(w, r.Status())
}
