package scene

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/document"
	"github.com/sceneforge/sceneforge/resolve"
)

var ErrEntityExists = eris.New("entity id already exists in scene")

// Scene owns the live entity graph: roots in order, an id index, the
// pending-key side table, and the named-behavior registry the key pass
// consults. It is confined to its owning goroutine.
type Scene struct {
	name     string
	camera   document.CameraDocument
	collide  json.RawMessage
	metadata map[string]any

	roots    []*Entity
	byID     map[string]*Entity
	names    map[string][]behavior.Behavior
	pending  *resolve.PendingKeyTable
	resolver *resolve.Resolver

	nextHandle resolve.Handle

	log zerolog.Logger
}

func New(cat *behavior.Catalogue, log zerolog.Logger) *Scene {
	s := &Scene{
		metadata:   make(map[string]any),
		byID:       make(map[string]*Entity),
		names:      make(map[string][]behavior.Behavior),
		pending:    resolve.NewPendingKeyTable(),
		nextHandle: 1,
		log:        log,
	}
	s.resolver = &resolve.Resolver{
		Catalogue: cat,
		Registry:  s,
		Pending:   s.pending,
		Log:       log,
	}
	return s
}

func (s *Scene) Name() string     { return s.name }
func (s *Scene) SetName(n string) { s.name = n }

func (s *Scene) Camera() document.CameraDocument     { return s.camera }
func (s *Scene) SetCamera(c document.CameraDocument) { s.camera = c }
func (s *Scene) Collision() json.RawMessage          { return s.collide }
func (s *Scene) SetCollision(raw json.RawMessage)    { s.collide = raw }
func (s *Scene) Metadata() map[string]any            { return s.metadata }
func (s *Scene) Pending() *resolve.PendingKeyTable   { return s.pending }
func (s *Scene) Resolver() *resolve.Resolver         { return s.resolver }

// NewEntity creates a root entity with a fresh id slot. A blank id gets a
// generated uuid. Duplicate ids are rejected; pass the parent later via
// SetParent.
func (s *Scene) NewEntity(id, name string) (*Entity, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.byID[id]; ok {
		return nil, eris.Wrapf(ErrEntityExists, "id %q", id)
	}
	e := &Entity{id: id, name: name, active: true, scene: s}
	s.byID[id] = e
	s.roots = append(s.roots, e)
	return e, nil
}

// Entity returns the entity with the given id, or nil.
func (s *Scene) Entity(id string) *Entity { return s.byID[id] }

// Roots returns the top-level entities in sibling order. The slice must not
// be mutated.
func (s *Scene) Roots() []*Entity { return s.roots }

func (s *Scene) removeRoot(e *Entity) {
	for i, r := range s.roots {
		if r == e {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return
		}
	}
}

// Walk visits every entity in deterministic preorder: roots in sibling
// order, then each subtree depth first.
func (s *Scene) Walk(fn func(*Entity)) {
	var visit func(*Entity)
	visit = func(e *Entity) {
		fn(e)
		for _, c := range e.children {
			visit(c)
		}
	}
	for _, r := range s.roots {
		visit(r)
	}
}

// RegisterNamed makes a behavior reachable by key from key-sourced
// reference fields. A key can hold behaviors of several types; Lookup picks
// by the field's target type, earliest registration first.
func (s *Scene) RegisterNamed(key string, b behavior.Behavior) {
	if key == "" || b == nil {
		return
	}
	s.names[key] = append(s.names[key], b)
}

// Lookup implements resolve.Registry. A key with no registration of the
// expected target type is a miss.
func (s *Scene) Lookup(key string, target reflect.Type) behavior.Behavior {
	want := reflect.PointerTo(target)
	for _, b := range s.names[key] {
		if reflect.TypeOf(b) == want {
			return b
		}
	}
	return nil
}

// Resolve runs reference resolution over the whole scene: the hierarchy
// pass across every root first, then the key pass. Safe to call again after
// adding entities; already-bound fields stay untouched.
func (s *Scene) Resolve() {
	for _, r := range s.roots {
		s.resolver.HierarchyPass(r)
	}
	for _, r := range s.roots {
		s.resolver.KeyPass(r)
	}
}

// Teardown clears scene-scoped side state: the pending-key table and the
// named-behavior registry. Entity structures are left to the collector.
func (s *Scene) Teardown() {
	s.pending.Clear()
	s.names = make(map[string][]behavior.Behavior)
	s.roots = nil
	s.byID = make(map[string]*Entity)
}
