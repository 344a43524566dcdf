package discovery

// invalidIndex is returned by dequeuing an empty uuidQueue.
const invalidIndex = -1

// uuidQueue is a bounded FIFO of cache indices whose 128-bit UUIDs are
// pending resolution.
type uuidQueue struct {
	idx []int
}

func newUUIDQueue(capacity int) *uuidQueue {
	return &uuidQueue{idx: make([]int, 0, capacity)}
}

// enqueue appends i. It reports false if the queue is full.
func (q *uuidQueue) enqueue(i int) bool {
	if len(q.idx) == cap(q.idx) {
		return false
	}
	q.idx = append(q.idx, i)
	return true
}

// dequeue removes and returns the head, or invalidIndex if q is empty.
func (q *uuidQueue) dequeue() int {
	if len(q.idx) == 0 {
		return invalidIndex
	}
	i := q.idx[0]
	copy(q.idx, q.idx[1:])
	q.idx = q.idx[:len(q.idx)-1]
	return i
}

// head returns the head without removing it, or invalidIndex if q is empty.
func (q *uuidQueue) head() int {
	if len(q.idx) == 0 {
		return invalidIndex
	}
	return q.idx[0]
}

func (q *uuidQueue) empty() bool { return len(q.idx) == 0 }

func (q *uuidQueue) len() int { return len(q.idx) }

func (q *uuidQueue) reset() { q.idx = q.idx[:0] }
