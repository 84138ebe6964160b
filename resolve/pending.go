// Package resolve fills in the non-owning reference fields of behaviors after
// the entity graph exists: hierarchy-sourced references from live graph
// position first, key-sourced references through a caller-supplied registry
// second.
package resolve

// Handle is the stable identifier of one behavior attachment. It is a plain
// integer assigned when a behavior is attached to an entity, so side tables
// never key on runtime object identity.
type Handle int

type pendingKey struct {
	handle Handle
	field  string
}

// PendingKeyTable maps (attachment, field) to the stored key string(s) of a
// Key-sourced reference. It is populated while reading behavior documents,
// read by pass 2 of resolution and by editor tooling, and consulted again on
// the write path so unresolved keys survive a save. Clear it whenever a scene
// is torn down; handles restart from zero on the next load.
type PendingKeyTable struct {
	single map[pendingKey]string
	lists  map[pendingKey][]string
}

func NewPendingKeyTable() *PendingKeyTable {
	return &PendingKeyTable{
		single: make(map[pendingKey]string),
		lists:  make(map[pendingKey][]string),
	}
}

// Set stores the key string for a single-valued reference field.
func (t *PendingKeyTable) Set(h Handle, field, key string) {
	t.single[pendingKey{h, field}] = key
}

// Get returns the stored key string for a single-valued reference field.
func (t *PendingKeyTable) Get(h Handle, field string) (string, bool) {
	key, ok := t.single[pendingKey{h, field}]
	return key, ok
}

// SetList stores the key strings for a list-valued reference field.
func (t *PendingKeyTable) SetList(h Handle, field string, keys []string) {
	t.lists[pendingKey{h, field}] = append([]string(nil), keys...)
}

// GetList returns the stored key strings for a list-valued reference field.
func (t *PendingKeyTable) GetList(h Handle, field string) ([]string, bool) {
	keys, ok := t.lists[pendingKey{h, field}]
	if !ok {
		return nil, false
	}
	return append([]string(nil), keys...), true
}

// Delete removes any stored keys for the field.
func (t *PendingKeyTable) Delete(h Handle, field string) {
	delete(t.single, pendingKey{h, field})
	delete(t.lists, pendingKey{h, field})
}

// Clear drops every entry. Call on scene teardown so a later load cannot
// collide with stale entries.
func (t *PendingKeyTable) Clear() {
	t.single = make(map[pendingKey]string)
	t.lists = make(map[pendingKey][]string)
}

// Len returns the number of stored entries.
func (t *PendingKeyTable) Len() int {
	return len(t.single) + len(t.lists)
}
