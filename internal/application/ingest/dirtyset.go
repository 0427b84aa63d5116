package ingest

// DirtySet tracks purchase order ids awaiting reconciliation. It is a FIFO
// queue with a membership set: an id enqueued several times within one open
// cycle is dequeued exactly once, in first-enqueued order. Dequeuing clears
// the membership flag so a later cycle may enqueue the same id again.
//
// Not safe for concurrent use; the batch driver is strictly sequential.
type DirtySet struct {
	queue   []string
	present map[string]struct{}
}

// NewDirtySet creates an empty DirtySet
func NewDirtySet() *DirtySet {
	return &DirtySet{present: make(map[string]struct{})}
}

// Enqueue appends id unless it is already pending. Returns whether the id was
// newly added.
func (s *DirtySet) Enqueue(id string) bool {
	if _, ok := s.present[id]; ok {
		return false
	}
	s.present[id] = struct{}{}
	s.queue = append(s.queue, id)
	return true
}

// Dequeue removes and returns the oldest pending id. The second return value
// is false when the set is empty.
func (s *DirtySet) Dequeue() (string, bool) {
	if len(s.queue) == 0 {
		return "", false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.present, id)
	return id, true
}

// Len returns the number of pending ids
func (s *DirtySet) Len() int {
	return len(s.queue)
}
