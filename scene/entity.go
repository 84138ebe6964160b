// Package scene provides the live entity graph the serialization engine
// reads and writes: entities with hierarchy, attached behaviors with stable
// handles, a named-behavior registry for key resolution, and the scene-level
// load/save paths.
package scene

import (
	"sort"

	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/resolve"
)

// Entity is one node of the live graph. It owns an ordered set of attached
// behaviors and its hierarchy links; behaviors reference each other only
// through resolved reference fields, never by owning pointers.
type Entity struct {
	id       string
	name     string
	tag      string
	active   bool
	order    int
	prefabID string

	parent   *Entity
	children []*Entity
	attached []resolve.Attachment

	scene *Scene
}

func (e *Entity) ID() string { return e.id }

func (e *Entity) Name() string     { return e.name }
func (e *Entity) SetName(n string) { e.name = n }

func (e *Entity) Tag() string     { return e.tag }
func (e *Entity) SetTag(t string) { e.tag = t }

func (e *Entity) Active() bool     { return e.active }
func (e *Entity) SetActive(a bool) { e.active = a }

// Order is the entity's position among its siblings.
func (e *Entity) Order() int { return e.order }

// PrefabID returns the template this entity was instantiated from, or ""
// for a scratch entity.
func (e *Entity) PrefabID() string { return e.prefabID }

// Attach adds a behavior to the entity and assigns it a stable handle. The
// handle keys the pending-key side table, so identity reuse across loads can
// never collide.
func (e *Entity) Attach(b behavior.Behavior) resolve.Handle {
	h := e.scene.nextHandle
	e.scene.nextHandle++
	e.attached = append(e.attached, resolve.Attachment{Handle: h, Behavior: b})
	return h
}

// Attached returns the behaviors in attach order. The slice must not be
// mutated.
func (e *Entity) Attached() []resolve.Attachment { return e.attached }

// Parent returns the immediate ancestor as a resolver node, or nil for
// roots.
func (e *Entity) Parent() resolve.Node {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// ParentEntity returns the immediate ancestor, or nil for roots.
func (e *Entity) ParentEntity() *Entity { return e.parent }

// Children returns the immediate descendants as resolver nodes, in sibling
// order.
func (e *Entity) Children() []resolve.Node {
	out := make([]resolve.Node, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}
	return out
}

// ChildEntities returns the immediate descendants in sibling order. The
// slice must not be mutated.
func (e *Entity) ChildEntities() []*Entity { return e.children }

// SetParent reparents the entity. A nil parent makes it a root.
func (e *Entity) SetParent(p *Entity) {
	if e.parent == p {
		return
	}
	if e.parent != nil {
		e.parent.removeChild(e)
	} else {
		e.scene.removeRoot(e)
	}
	e.parent = p
	if p != nil {
		p.children = append(p.children, e)
	} else {
		e.scene.roots = append(e.scene.roots, e)
	}
}

func (e *Entity) removeChild(c *Entity) {
	for i, child := range e.children {
		if child == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

func (e *Entity) sortChildren() {
	sort.SliceStable(e.children, func(i, j int) bool {
		return e.children[i].order < e.children[j].order
	})
}

// Get returns the first attached behavior of type T, or nil.
func Get[T behavior.Behavior](e *Entity) *T {
	for _, att := range e.attached {
		if b, ok := any(att.Behavior).(*T); ok {
			return b
		}
	}
	return nil
}

// HandleOf returns the attachment handle of a behavior on this entity.
func (e *Entity) HandleOf(b behavior.Behavior) (resolve.Handle, bool) {
	for _, att := range e.attached {
		if att.Behavior == b {
			return att.Handle, true
		}
	}
	return 0, false
}
