package protocol

import "errors"

var (
	ErrStreamClosed    = errors.New("protocol: command stream closed")
	ErrTruncated       = errors.New("protocol: truncated frame")
	ErrStringTooLarge  = errors.New("protocol: string too large")
	ErrBlobTooLarge    = errors.New("protocol: blob too large")
	ErrInvalidLength   = errors.New("protocol: invalid length")
	ErrUnknownOpcode   = errors.New("protocol: unknown opcode")
	ErrInvalidResponse = errors.New("protocol: invalid response record")
)
