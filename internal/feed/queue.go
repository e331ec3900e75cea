package feed

import "sync"

// Queue is an unbounded FIFO of pending characters for one side.
// Connection goroutines push; the frame loop pops.
type Queue struct {
	mu    sync.Mutex
	items []rune
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends one character.
func (q *Queue) Push(r rune) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

// PushString appends every rune of s in order and returns how many were
// added. Invalid UTF-8 bytes become U+FFFD.
func (q *Queue) PushString(s string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, r := range s {
		q.items = append(q.items, r)
		n++
	}
	return n
}

// Pop removes and returns the oldest character.
func (q *Queue) Pop() (rune, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return 0, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	q.compact()
	return r, true
}

// PopN removes and returns up to n of the oldest characters.
func (q *Queue) PopN(n int) []rune {
	q.mu.Lock()
	defer q.mu.Unlock()

	n = min(n, len(q.items))
	if n <= 0 {
		return nil
	}
	out := make([]rune, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	q.compact()
	return out
}

// Len returns the number of pending characters.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// compact releases the consumed prefix once the backing array is mostly
// unused. Must be called with mu held.
func (q *Queue) compact() {
	if len(q.items) == 0 {
		q.items = nil
		return
	}
	if cap(q.items) > 1024 && len(q.items) < cap(q.items)/4 {
		q.items = append([]rune(nil), q.items...)
	}
}
