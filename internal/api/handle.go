package api

import "fmt"

// Handle names one logical object across every rank of the worker group.
type Handle uint64

// NullHandle is never bound.
const NullHandle Handle = 0

func (h Handle) IsNull() bool {
	return h == NullHandle
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d", uint64(h))
}
