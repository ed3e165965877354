package agentexec

import "sync"

// resultCell is a single-assignment slot: the first resolve wins, later ones are no-ops.
type resultCell struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

func newResultCell() *resultCell {
	return &resultCell{done: make(chan struct{})}
}

// resolve stores r if the cell is still empty and reports whether it did.
func (c *resultCell) resolve(r Result) bool {
	won := false
	c.once.Do(func() {
		c.result = r
		won = true
		close(c.done)
	})
	return won
}

// wait blocks until the cell holds a result.
func (c *resultCell) wait() Result {
	<-c.done
	return c.result
}
