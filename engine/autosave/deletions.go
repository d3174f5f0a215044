package autosave

// DeletionQueue is the ordered set of persisted row identifiers the user
// has removed but the server has not yet confirmed deleted. Rows that
// only ever existed locally are dropped silently and never enter the
// queue; the server never knew about them.
type DeletionQueue struct {
	order []string
	seen  map[string]struct{}
}

// NewDeletionQueue returns an empty queue.
func NewDeletionQueue() *DeletionQueue {
	return &DeletionQueue{seen: make(map[string]struct{})}
}

// Enqueue adds an identifier. Blank ids and duplicates are ignored.
func (q *DeletionQueue) Enqueue(id string) {
	if id == "" {
		return
	}
	if _, dup := q.seen[id]; dup {
		return
	}
	q.seen[id] = struct{}{}
	q.order = append(q.order, id)
}

// Pending returns the queued identifiers in removal order.
func (q *DeletionQueue) Pending() []string {
	return append([]string(nil), q.order...)
}

// Ack removes identifiers the server confirmed deleted. Ids queued after
// the payload was collected stay queued for the next cycle.
func (q *DeletionQueue) Ack(ids []string) {
	if len(ids) == 0 {
		return
	}
	acked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		acked[id] = struct{}{}
	}
	kept := q.order[:0]
	for _, id := range q.order {
		if _, ok := acked[id]; ok {
			delete(q.seen, id)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

// Len returns the number of queued identifiers.
func (q *DeletionQueue) Len() int {
	return len(q.order)
}
