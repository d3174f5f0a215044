package rows

import "fmt"

// Table is the in-memory Source used by the document editor. One table
// holds one section of a document (materials, time, adjustments) and
// keeps rows in insertion order.
type Table struct {
	name    string
	kind    Kind
	order   []string
	byKey   map[string]*Row
	nextKey int
}

// NewTable creates an empty section table. New rows added without a kind
// inherit the table's kind.
func NewTable(name string, kind Kind) *Table {
	return &Table{
		name:  name,
		kind:  kind,
		byKey: make(map[string]*Row),
	}
}

// Name returns the section name.
func (t *Table) Name() string { return t.name }

// Kind returns the line variant this section holds.
func (t *Table) Kind() Kind { return t.kind }

// Len returns the number of rows currently held.
func (t *Table) Len() int { return len(t.order) }

// Get returns the live row for key, or nil.
func (t *Table) Get(key string) *Row {
	return t.byKey[key]
}

// ForEachRow visits rows in insertion order. The callback receives the
// live row and may mutate it.
func (t *Table) ForEachRow(fn func(r *Row)) {
	for _, key := range t.order {
		fn(t.byKey[key])
	}
}

// ApplyAdd appends a row, filling in the kind, a fresh key and the
// temporary identifier where absent, and returns the live row.
func (t *Table) ApplyAdd(r Row) *Row {
	if r.Kind == "" {
		r.Kind = t.kind
	}
	if r.Key == "" {
		t.nextKey++
		r.Key = fmt.Sprintf("%s-%d", t.name, t.nextKey)
	}
	if r.ID == "" {
		r.ID = TempMarker
	}
	if _, exists := t.byKey[r.Key]; exists {
		// Re-adding an existing key replaces the row in place.
		*t.byKey[r.Key] = r
		return t.byKey[r.Key]
	}
	row := r
	t.byKey[row.Key] = &row
	t.order = append(t.order, row.Key)
	return &row
}

// ApplyRemove deletes the row for key and returns a copy of it.
func (t *Table) ApplyRemove(key string) (Row, bool) {
	row, ok := t.byKey[key]
	if !ok {
		return Row{}, false
	}
	delete(t.byKey, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return *row, true
}

// Rows returns a copy of all rows in order.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, *t.byKey[key])
	}
	return out
}
