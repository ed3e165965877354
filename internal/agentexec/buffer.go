package agentexec

import (
	"bytes"
	"sync"
)

// cappedBuffer accumulates process output up to limit bytes (0 = unbounded). Writes
// never fail so the process is never blocked by a full buffer; overflow is counted.
type cappedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped int
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 {
		room := b.limit - b.buf.Len()
		if room < len(p) {
			if room > 0 {
				b.buf.Write(p[:room])
				b.dropped += len(p) - room
			} else {
				b.dropped += len(p)
			}
			return len(p), nil
		}
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *cappedBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
