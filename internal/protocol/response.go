package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/danmuck/renderd/internal/api"
	"github.com/vmihailenco/msgpack/v5"
)

// Response is the fixed-layout record rank 0 returns to the master for
// query and collective opcodes. Only the payload slot matching Type is set.
type Response struct {
	Opcode  Opcode       `msgpack:"opcode"`
	Success bool         `msgpack:"success"`
	Type    api.DataType `msgpack:"type"`
	Int     int32        `msgpack:"int,omitempty"`
	Ints    []int32      `msgpack:"ints,omitempty"`
	Float   float32      `msgpack:"float,omitempty"`
	Floats  []float32    `msgpack:"floats,omitempty"`
	String  string       `msgpack:"string,omitempty"`
}

// NotFound is the structured negative query result.
func NotFound(op Opcode) Response {
	return Response{Opcode: op, Success: false}
}

// Vote reports an aggregated collective decision; Int carries the failure sum.
func Vote(op Opcode, failures int) Response {
	return Response{Opcode: op, Success: failures == 0, Type: api.TypeInt, Int: int32(failures)}
}

// EncodeResponse writes one self-delimiting record to w.
func EncodeResponse(w io.Writer, resp Response) error {
	if err := msgpack.NewEncoder(w).Encode(&resp); err != nil {
		return fmt.Errorf("protocol: encode response: %w", err)
	}
	return nil
}

// MarshalResponse returns the encoded record.
func MarshalResponse(resp Response) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeResponse(&buf, resp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResponseDecoder reads consecutive records from a stream.
type ResponseDecoder struct {
	dec *msgpack.Decoder
}

func NewResponseDecoder(r io.Reader) *ResponseDecoder {
	return &ResponseDecoder{dec: msgpack.NewDecoder(r)}
}

func (d *ResponseDecoder) Next() (Response, error) {
	var resp Response
	if err := d.dec.Decode(&resp); err != nil {
		if err == io.EOF {
			return Response{}, err
		}
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp, nil
}

// UnmarshalResponse decodes a single record.
func UnmarshalResponse(p []byte) (Response, error) {
	return NewResponseDecoder(bytes.NewReader(p)).Next()
}
