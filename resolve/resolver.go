package resolve

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/behavior"
)

// Attachment pairs a live behavior with the stable handle it was assigned
// when attached to its entity.
type Attachment struct {
	Handle   Handle
	Behavior behavior.Behavior
}

// Node is the read-only hierarchy view the resolver traverses. Parent returns
// nil for roots; Children and Attached are in insertion order, which is the
// order first-match resolution observes.
type Node interface {
	Parent() Node
	Children() []Node
	Attached() []Attachment
}

// Registry is the named-behavior lookup consulted by the key pass. Lookup
// returns nil when the key is unknown or the registered instance is not of
// the expected target type; registration of keys belongs to the owning scene
// system, not the resolver.
type Registry interface {
	Lookup(key string, target reflect.Type) behavior.Behavior
}

// Resolver fills reference fields in exactly two passes. The cross-behavior
// ordering is a correctness invariant: every hierarchy reference in the graph
// is resolved before the first key lookup, so key-resolved behaviors can rely
// on their hierarchy references being populated. Fields that already hold a
// value are skipped, which makes re-running resolution a no-op.
type Resolver struct {
	Catalogue *behavior.Catalogue
	Registry  Registry
	Pending   *PendingKeyTable
	Log       zerolog.Logger
}

// ResolveGraph resolves every reference field on every behavior in the
// subtree rooted at root: the hierarchy pass over the whole subtree first,
// then the key pass.
func (r *Resolver) ResolveGraph(root Node) {
	r.HierarchyPass(root)
	r.KeyPass(root)
}

// HierarchyPass runs pass 1 over the subtree rooted at root. Scenes with
// multiple roots run this for every root before the first KeyPass.
func (r *Resolver) HierarchyPass(root Node) {
	walk(root, r.resolveHierarchy)
}

// KeyPass runs pass 2 over the subtree rooted at root.
func (r *Resolver) KeyPass(root Node) {
	walk(root, r.resolveKeys)
}

// ResolveNode resolves a single node's behaviors, hierarchy pass then key
// pass. Use ResolveGraph when loading whole scenes.
func (r *Resolver) ResolveNode(node Node) {
	r.resolveHierarchy(node)
	r.resolveKeys(node)
}

func walk(node Node, fn func(Node)) {
	fn(node)
	for _, child := range node.Children() {
		walk(child, fn)
	}
}

func (r *Resolver) resolveHierarchy(node Node) {
	for _, att := range node.Attached() {
		meta, err := r.Catalogue.ByInstance(att.Behavior)
		if err != nil {
			r.Log.Debug().Str("behavior", att.Behavior.Name()).
				Msg("skipping reference resolution for unregistered behavior")
			continue
		}
		refs := meta.References()
		for i := range refs {
			m := &refs[i]
			if m.Source == behavior.SourceKey {
				continue
			}
			if m.IsList {
				r.hierarchyList(node, att, m)
			} else {
				r.hierarchySingle(node, att, m)
			}
		}
	}
}

func (r *Resolver) hierarchySingle(node Node, att Attachment, m *behavior.ReferenceMeta) {
	slot := m.Slot(att.Behavior)
	if slot.IsSet() {
		return
	}
	var found behavior.Behavior
	switch m.Source {
	case behavior.SourceSelf:
		found = firstMatch(node, m)
	case behavior.SourceParent:
		if p := node.Parent(); p != nil {
			found = firstMatch(p, m)
		}
	case behavior.SourceChildren:
		for _, child := range node.Children() {
			if found = firstMatch(child, m); found != nil {
				break
			}
		}
	case behavior.SourceChildrenRecursive:
		eachDescendant(node, func(n Node) bool {
			found = firstMatch(n, m)
			return found == nil
		})
	}
	if found == nil {
		if m.Required {
			r.warnUnresolved(att.Behavior, m, "")
		}
		return
	}
	if err := slot.Bind(found); err != nil {
		r.Log.Warn().Err(err).Str("behavior", att.Behavior.Name()).Str("field", m.Name).
			Msg("could not bind hierarchy reference")
	}
}

func (r *Resolver) hierarchyList(node Node, att Attachment, m *behavior.ReferenceMeta) {
	list := m.List(att.Behavior)
	if list.Len() > 0 {
		return
	}
	var found []behavior.Behavior
	switch m.Source {
	case behavior.SourceSelf:
		found = allMatches(node, m, found)
	case behavior.SourceParent:
		if p := node.Parent(); p != nil {
			found = allMatches(p, m, found)
		}
	case behavior.SourceChildren:
		for _, child := range node.Children() {
			found = allMatches(child, m, found)
		}
	case behavior.SourceChildrenRecursive:
		eachDescendant(node, func(n Node) bool {
			found = allMatches(n, m, found)
			return true
		})
	}
	if len(found) == 0 {
		if m.Required {
			r.warnUnresolved(att.Behavior, m, "")
		}
		return
	}
	for _, b := range found {
		if err := list.Bind(b); err != nil {
			r.Log.Warn().Err(err).Str("behavior", att.Behavior.Name()).Str("field", m.Name).
				Msg("could not bind hierarchy reference")
		}
	}
}

func (r *Resolver) resolveKeys(node Node) {
	for _, att := range node.Attached() {
		meta, err := r.Catalogue.ByInstance(att.Behavior)
		if err != nil {
			continue
		}
		refs := meta.References()
		for i := range refs {
			m := &refs[i]
			if m.Source != behavior.SourceKey {
				continue
			}
			if m.IsList {
				r.keyList(att, m)
			} else {
				r.keySingle(att, m)
			}
		}
	}
}

func (r *Resolver) keySingle(att Attachment, m *behavior.ReferenceMeta) {
	slot := m.Slot(att.Behavior)
	if slot.IsSet() {
		return
	}
	key, ok := r.Pending.Get(att.Handle, m.Name)
	if !ok || key == "" {
		if m.Required {
			r.warnUnresolved(att.Behavior, m, key)
		}
		return
	}
	found := r.Registry.Lookup(key, m.TargetType)
	if found == nil {
		if m.Required {
			r.warnUnresolved(att.Behavior, m, key)
		}
		return
	}
	if err := slot.Bind(found); err != nil {
		r.Log.Warn().Err(err).Str("behavior", att.Behavior.Name()).Str("field", m.Name).
			Str("key", key).Msg("could not bind key reference")
	}
}

// keyList resolves list keys in input order, skipping misses individually
// rather than failing the whole list.
func (r *Resolver) keyList(att Attachment, m *behavior.ReferenceMeta) {
	list := m.List(att.Behavior)
	if list.Len() > 0 {
		return
	}
	keys, ok := r.Pending.GetList(att.Handle, m.Name)
	if !ok || len(keys) == 0 {
		if m.Required {
			r.warnUnresolved(att.Behavior, m, "")
		}
		return
	}
	bound := 0
	for _, key := range keys {
		found := r.Registry.Lookup(key, m.TargetType)
		if found == nil {
			r.Log.Warn().Str("behavior", att.Behavior.Name()).Str("field", m.Name).
				Str("target", m.TargetName).Str("key", key).
				Msg("key reference did not resolve")
			continue
		}
		if err := list.Bind(found); err != nil {
			r.Log.Warn().Err(err).Str("behavior", att.Behavior.Name()).Str("field", m.Name).
				Str("key", key).Msg("could not bind key reference")
			continue
		}
		bound++
	}
	if bound == 0 && m.Required {
		r.warnUnresolved(att.Behavior, m, "")
	}
}

// warnUnresolved emits the data-quality diagnostic for a required reference
// that resolved to nothing. Missing required references never fail
// resolution.
func (r *Resolver) warnUnresolved(owner behavior.Behavior, m *behavior.ReferenceMeta, key string) {
	ev := r.Log.Warn().
		Str("behavior", owner.Name()).
		Str("field", m.Name).
		Str("target", m.TargetName).
		Str("source", m.Source.String())
	if key != "" {
		ev = ev.Str("key", key)
	}
	ev.Msg("required reference did not resolve")
}

func firstMatch(node Node, m *behavior.ReferenceMeta) behavior.Behavior {
	for _, att := range node.Attached() {
		if m.Matches(att.Behavior) {
			return att.Behavior
		}
	}
	return nil
}

func allMatches(node Node, m *behavior.ReferenceMeta, into []behavior.Behavior) []behavior.Behavior {
	for _, att := range node.Attached() {
		if m.Matches(att.Behavior) {
			into = append(into, att.Behavior)
		}
	}
	return into
}

// eachDescendant visits the strict descendants of node in preorder, stopping
// early when fn returns false.
func eachDescendant(node Node, fn func(Node) bool) bool {
	for _, child := range node.Children() {
		if !fn(child) {
			return false
		}
		if !eachDescendant(child, fn) {
			return false
		}
	}
	return true
}
