// Package protocol owns the master->worker command stream contract.
//
// Ownership boundary:
// - opcode set and per-opcode field schema
// - frame field reader (worker side)
// - frame builder (master side and tests)
// - rank-0 response record
//
// Frames carry no length prefix and no schema version. A frame is a 4-byte
// opcode followed by the fields its schema declares, so both ends must agree
// on the schema out of band. Multi-byte values are big-endian.
package protocol
