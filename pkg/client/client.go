// Package client implements the client side of the backup protocol: it
// encodes requests, decodes responses (which the server itself never
// does) and maps error statuses onto Go errors.
//
// The protocol is one request per connection, so every operation dials,
// runs its single request/response cycle and closes.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	protocol "github.com/marmos91/packrat/internal/protocol/backup"
	"github.com/marmos91/packrat/internal/protocol/backup/wire"
)

// ErrNoClient reports that the server does not know the client ID yet.
var ErrNoClient = errors.New("server: no such client")

// ErrNoFile reports that the server knows the client but not the name.
var ErrNoFile = errors.New("server: no such file")

// ErrServer reports a general server-side failure.
var ErrServer = errors.New("server: general error")

// Client talks to one backup server on behalf of one client ID.
type Client struct {
	addr     string
	clientID uint32
	version  uint8
	dialer   net.Dialer
}

// New creates a Client for the server at addr (host:port).
func New(addr string, clientID uint32) *Client {
	return &Client{
		addr:     addr,
		clientID: clientID,
		version:  protocol.Version,
	}
}

// Listing is the result of a List operation.
type Listing struct {
	// Names are the stored file names, one per listing line.
	Names []string

	// AdvisoryName is the random name the protocol attaches to a
	// listing. It has no meaning and cannot be looked up.
	AdvisoryName string
}

// Save uploads data under name.
func (c *Client) Save(ctx context.Context, name string, data []byte) error {
	wireName, err := wire.NewName([]byte(name))
	if err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	payload, err := wire.NewPayload(data)
	if err != nil {
		return err
	}

	resp, err := c.roundTrip(ctx, protocol.OpSave, func(w io.Writer) error {
		if err := wireName.Encode(w); err != nil {
			return err
		}
		return payload.Encode(w)
	})
	if err != nil {
		return err
	}

	return expectStatus(resp, protocol.StatusSuccessSaveOrDelete)
}

// Restore downloads the content stored under name.
func (c *Client) Restore(ctx context.Context, name string) ([]byte, error) {
	wireName, err := wire.NewName([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("invalid name: %w", err)
	}

	resp, err := c.roundTrip(ctx, protocol.OpRestore, wireName.Encode)
	if err != nil {
		return nil, err
	}

	if err := expectStatus(resp, protocol.StatusSuccessRestore); err != nil {
		return nil, err
	}
	return resp.payload, nil
}

// Delete removes the file stored under name.
func (c *Client) Delete(ctx context.Context, name string) error {
	wireName, err := wire.NewName([]byte(name))
	if err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	resp, err := c.roundTrip(ctx, protocol.OpDelete, wireName.Encode)
	if err != nil {
		return err
	}

	return expectStatus(resp, protocol.StatusSuccessSaveOrDelete)
}

// List enumerates the files stored for the client ID.
func (c *Client) List(ctx context.Context) (*Listing, error) {
	resp, err := c.roundTrip(ctx, protocol.OpList, nil)
	if err != nil {
		return nil, err
	}

	if err := expectStatus(resp, protocol.StatusSuccessList); err != nil {
		return nil, err
	}

	listing := &Listing{AdvisoryName: resp.name}
	for _, line := range strings.Split(string(resp.payload), "\n") {
		if line != "" {
			listing.Names = append(listing.Names, line)
		}
	}
	return listing, nil
}

// response is a decoded server response.
type response struct {
	version uint8
	status  protocol.Status
	name    string
	payload []byte
}

// roundTrip dials, sends the 6-byte header plus the opcode-specific
// fields written by body, and decodes the single response.
func (c *Client) roundTrip(ctx context.Context, op protocol.Op, body func(io.Writer) error) (*response, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	header := struct {
		ClientID uint32
		Version  uint8
		Opcode   uint8
	}{ClientID: c.clientID, Version: c.version, Opcode: uint8(op)}

	if err := binary.Write(conn, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("write request header: %w", err)
	}
	if body != nil {
		if err := body(conn); err != nil {
			return nil, err
		}
	}

	return decodeResponse(conn)
}

func decodeResponse(r io.Reader) (*response, error) {
	var header struct {
		Version uint8
		Status  uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read response header: %w", err)
	}

	resp := &response{version: header.Version, status: protocol.Status(header.Status)}

	switch resp.status {
	case protocol.StatusSuccessRestore, protocol.StatusSuccessList:
		name, err := wire.DecodeName(r)
		if err != nil {
			return nil, err
		}
		payload, err := wire.DecodePayload(r)
		if err != nil {
			return nil, err
		}
		resp.name = string(name)
		resp.payload = payload.Bytes()

	case protocol.StatusSuccessSaveOrDelete, protocol.StatusErrorNoFile:
		name, err := wire.DecodeName(r)
		if err != nil {
			return nil, err
		}
		resp.name = string(name)

	case protocol.StatusErrorNoClient, protocol.StatusErrorGeneral:
		// Header only.

	default:
		return nil, fmt.Errorf("unrecognized response status %d", header.Status)
	}

	return resp, nil
}

// expectStatus maps error statuses to sentinel errors and rejects any
// success status other than the expected one.
func expectStatus(resp *response, want protocol.Status) error {
	switch resp.status {
	case want:
		return nil
	case protocol.StatusErrorNoFile:
		return ErrNoFile
	case protocol.StatusErrorNoClient:
		return ErrNoClient
	case protocol.StatusErrorGeneral:
		return ErrServer
	default:
		return fmt.Errorf("unexpected response status %s", resp.status)
	}
}
