// Package api owns the value vocabulary shared by the wire protocol and the
// scene object model.
//
// Ownership boundary:
// - handle identity
// - parameter data types and element sizes
// - vector, frame buffer, and texture enums
package api
