// Package transport delivers the master's command stream to each rank and
// carries rank 0's responses back.
//
// Every transport gives each rank an identical byte sequence. Responses are
// msgpack records written only by rank 0.
package transport
