// Package buffers provides reusable staging buffers so concurrent jobs do
// not allocate a fresh chunk per transfer.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/rescale/courier/internal/constants"
)

// Pool monitoring counters
var (
	chunkAllocations int64
	chunkGets        int64
)

var chunkPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&chunkAllocations, 1)
		buf := make([]byte, constants.ChunkSize)
		return &buf
	},
}

// GetChunkBuffer retrieves a ChunkSize buffer from the pool. Return it with
// PutChunkBuffer.
//
// Usage:
//
//	buf := buffers.GetChunkBuffer()
//	defer buffers.PutChunkBuffer(buf)
//	n, err := r.Read(*buf)
func GetChunkBuffer() *[]byte {
	atomic.AddInt64(&chunkGets, 1)
	return chunkPool.Get().(*[]byte)
}

// PutChunkBuffer returns a buffer to the pool. Buffers of another size are
// dropped. The buffer is cleared so staged bytes do not outlive the job.
func PutChunkBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.ChunkSize {
		clear(*buf)
		chunkPool.Put(buf)
	}
}

// Stats is a snapshot of pool usage.
type Stats struct {
	ChunkBufferSize  int
	ChunkAllocations int64
	ChunkReuses      int64
}

// GetStats returns current pool statistics.
func GetStats() Stats {
	allocs := atomic.LoadInt64(&chunkAllocations)
	gets := atomic.LoadInt64(&chunkGets)
	reuses := gets - allocs
	if reuses < 0 {
		reuses = 0
	}
	return Stats{
		ChunkBufferSize:  constants.ChunkSize,
		ChunkAllocations: allocs,
		ChunkReuses:      reuses,
	}
}
