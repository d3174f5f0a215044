package autosave

// SnapshotStore holds the last-acknowledged serialized form of every row,
// keyed by row key. Entries are written only after a successful save so a
// failed dispatch leaves the next collection pass seeing the same rows as
// still unsaved.
type SnapshotStore struct {
	byKey map[string]string
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byKey: make(map[string]string)}
}

// Changed reports whether fingerprint differs from the last acknowledged
// form for key. Keys with no entry are always considered changed; they
// are new rows.
func (s *SnapshotStore) Changed(key, fingerprint string) bool {
	last, ok := s.byKey[key]
	if !ok {
		return true
	}
	return last != fingerprint
}

// Commit records fingerprint as the acknowledged form for key.
func (s *SnapshotStore) Commit(key, fingerprint string) {
	s.byKey[key] = fingerprint
}

// Forget drops the entry for key. Used when a row leaves the grid.
func (s *SnapshotStore) Forget(key string) {
	delete(s.byKey, key)
}

// Len returns the number of tracked keys.
func (s *SnapshotStore) Len() int {
	return len(s.byKey)
}
