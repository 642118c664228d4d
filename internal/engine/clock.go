package engine

import "sync/atomic"

// Clock hands out the seq numbers that order a journal.
//
// Seqs are logical: a step's commands take consecutive seqs in the order
// they were applied and the step record takes the seq after them. Sorting a
// run's journal by seq therefore reproduces it, independent of wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first seq is start+1. Pass the last seq of
// an earlier run to keep numbering monotonic across runs in one journal.
func NewClock(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next takes one seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Reserve takes n consecutive seqs and returns the first. Reserving zero
// returns the seq the next call would hand out without taking it.
func (c *Clock) Reserve(n int) int64 {
	if n <= 0 {
		return c.seq.Load() + 1
	}
	return c.seq.Add(int64(n)) - int64(n) + 1
}

// Current is the last seq handed out, 0 for a fresh clock.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
