// Package backup implements the request/response model of the backup
// protocol: parsing a request stream into one of four typed requests,
// processing each against a store, and serializing the resulting
// response.
package backup

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/marmos91/packrat/internal/logger"
	"github.com/marmos91/packrat/internal/protocol/backup/wire"
	"github.com/marmos91/packrat/pkg/store"
)

// Header carries the fields common to every request: the storage
// namespace key and the client's protocol version.
type Header struct {
	ClientID uint32
	Version  uint8
}

// Request is one parsed protocol request.
//
// Process performs the corresponding store operation and returns exactly
// one Response. It is total: every failure inside resolves to an error
// response, never to a Go error, so the dispatcher always has something
// to send back.
type Request interface {
	Op() Op
	Process(ctx context.Context, st store.Store) Response
}

// SaveRequest stores a payload under a name in the client's namespace.
type SaveRequest struct {
	Header
	Name    wire.Name
	Payload wire.Payload
}

// RestoreRequest reads a previously saved file back.
type RestoreRequest struct {
	Header
	Name wire.Name
}

// DeleteRequest removes a previously saved file.
type DeleteRequest struct {
	Header
	Name wire.Name
}

// ListRequest enumerates the files in the client's namespace.
type ListRequest struct {
	Header
}

// DecodeRequest parses one request from the stream: the fixed 6-byte
// header (client_id u32, version u8, opcode u8, little-endian), then the
// opcode-specific fields. Any sub-read failure aborts the whole request;
// no partial request is ever returned.
func DecodeRequest(r io.Reader) (Request, error) {
	var raw struct {
		ClientID uint32
		Version  uint8
		Opcode   uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("read request header: %w", err)
	}

	if !validOp(raw.Opcode) {
		return nil, fmt.Errorf("unrecognized opcode %d", raw.Opcode)
	}

	header := Header{ClientID: raw.ClientID, Version: raw.Version}

	switch Op(raw.Opcode) {
	case OpList:
		return &ListRequest{Header: header}, nil

	case OpRestore, OpDelete:
		name, err := wire.DecodeName(r)
		if err != nil {
			return nil, err
		}
		if Op(raw.Opcode) == OpRestore {
			return &RestoreRequest{Header: header, Name: name}, nil
		}
		return &DeleteRequest{Header: header, Name: name}, nil

	case OpSave:
		name, err := wire.DecodeName(r)
		if err != nil {
			return nil, err
		}
		payload, err := wire.DecodePayload(r)
		if err != nil {
			return nil, err
		}
		return &SaveRequest{Header: header, Name: name, Payload: payload}, nil
	}

	// validOp already rejected everything else.
	return nil, fmt.Errorf("unrecognized opcode %d", raw.Opcode)
}

func (r *SaveRequest) Op() Op    { return OpSave }
func (r *RestoreRequest) Op() Op { return OpRestore }
func (r *DeleteRequest) Op() Op  { return OpDelete }
func (r *ListRequest) Op() Op    { return OpList }

func (r *SaveRequest) Process(ctx context.Context, st store.Store) Response {
	if err := st.Save(ctx, r.ClientID, string(r.Name), r.Payload.Bytes()); err != nil {
		logger.Error("Save failed for client %d name %q: %v", r.ClientID, string(r.Name), err)
		return &ErrorGeneralResponse{}
	}

	return &SuccessSaveOrDeleteResponse{Name: r.Name}
}

func (r *RestoreRequest) Process(ctx context.Context, st store.Store) Response {
	data, err := st.Restore(ctx, r.ClientID, string(r.Name))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoClient):
			return &ErrorNoClientResponse{}
		case errors.Is(err, store.ErrNoFile):
			return &ErrorNoFileResponse{Name: r.Name}
		default:
			logger.Error("Restore failed for client %d name %q: %v", r.ClientID, string(r.Name), err)
			return &ErrorGeneralResponse{}
		}
	}

	payload, err := wire.NewPayload(data)
	if err != nil {
		logger.Error("Restore payload for client %d name %q: %v", r.ClientID, string(r.Name), err)
		return &ErrorGeneralResponse{}
	}

	return &SuccessRestoreResponse{Name: r.Name, Payload: payload}
}

func (r *DeleteRequest) Process(ctx context.Context, st store.Store) Response {
	if err := st.Delete(ctx, r.ClientID, string(r.Name)); err != nil {
		switch {
		case errors.Is(err, store.ErrNoClient):
			return &ErrorNoClientResponse{}
		case errors.Is(err, store.ErrNoFile):
			return &ErrorNoFileResponse{Name: r.Name}
		default:
			logger.Error("Delete failed for client %d name %q: %v", r.ClientID, string(r.Name), err)
			return &ErrorGeneralResponse{}
		}
	}

	// Delete success reuses the Save success status on purpose.
	return &SuccessSaveOrDeleteResponse{Name: r.Name}
}

func (r *ListRequest) Process(ctx context.Context, st store.Store) Response {
	names, err := st.List(ctx, r.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNoClient) {
			return &ErrorNoClientResponse{}
		}
		logger.Error("List failed for client %d: %v", r.ClientID, err)
		return &ErrorGeneralResponse{}
	}

	var listing []byte
	for _, name := range names {
		listing = append(listing, name...)
		listing = append(listing, '\n')
	}

	payload, err := wire.NewPayload(listing)
	if err != nil {
		logger.Error("List payload for client %d: %v", r.ClientID, err)
		return &ErrorGeneralResponse{}
	}

	return &SuccessListResponse{Name: randomListName(), Payload: payload}
}

// listNameLength is the fixed length of the advisory name returned with
// a listing. The value is a required protocol field but carries no
// meaning: it is never looked up and need not be reproducible.
const listNameLength = 32

const listNameAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func randomListName() wire.Name {
	raw := make([]byte, listNameLength)
	for i := range raw {
		raw[i] = listNameAlphabet[rand.IntN(len(listNameAlphabet))]
	}

	// Alphanumeric bytes always pass name validation.
	name, err := wire.NewName(raw)
	if err != nil {
		panic(fmt.Sprintf("random list name failed validation: %v", err))
	}
	return name
}
