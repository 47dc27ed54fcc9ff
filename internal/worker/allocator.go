package worker

// Allocator supplies the dedicated buffers used for region payloads larger
// than the scratch buffer. Every Alloc is paired with exactly one Free.
type Allocator interface {
	Alloc(n int) []byte
	Free(buf []byte)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(n int) []byte { return make([]byte, n) }
func (heapAllocator) Free([]byte) {}
