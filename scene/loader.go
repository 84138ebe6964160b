package scene

import (
	"sort"

	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/document"
	"github.com/sceneforge/sceneforge/prefab"
)

// Load builds a live scene from a document. Structural violations (bad
// version, duplicate ids, dangling or cyclic parents, mixed entity forms) fail the
// whole load; everything else degrades per behavior or per field with a
// logged diagnostic. The load context carries the catalogue, migrations,
// and fallback tracking for this one load; the scene adopts the context's
// pending-key table so stored keys survive until resolution and teardown.
func Load(ctx *document.Context, doc *document.SceneDocument, templates prefab.Source) (*Scene, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s := New(ctx.Catalogue, ctx.Log)
	s.pending = ctx.Pending
	s.resolver.Pending = ctx.Pending

	s.name = doc.Name
	s.camera = doc.Camera
	s.collide = doc.Collision
	for k, v := range doc.Metadata {
		s.metadata[k] = v
	}

	for i := range doc.Entities {
		ed := &doc.Entities[i]
		e, err := s.NewEntity(ed.ID, ed.Name)
		if err != nil {
			return nil, err
		}
		e.tag = ed.Tag
		e.active = ed.Active
		e.order = ed.Order
		e.prefabID = ed.PrefabID
	}

	// Parent links were validated above, so lookups cannot miss.
	for i := range doc.Entities {
		ed := &doc.Entities[i]
		if ed.ParentID == "" {
			continue
		}
		s.byID[ed.ID].SetParent(s.byID[ed.ParentID])
	}

	sort.SliceStable(s.roots, func(i, j int) bool {
		return s.roots[i].order < s.roots[j].order
	})
	for _, e := range s.byID {
		e.sortChildren()
	}

	for i := range doc.Entities {
		ed := &doc.Entities[i]
		e := s.byID[ed.ID]
		if ed.IsPrefabInstance() {
			s.loadPrefabEntity(ctx, e, ed, templates)
		} else {
			s.loadScratchEntity(ctx, e, ed)
		}
	}

	s.Resolve()
	return s, nil
}

func (s *Scene) loadScratchEntity(ctx *document.Context, e *Entity, ed *document.EntityDocument) {
	for _, comp := range ed.Components {
		meta, b, err := ctx.NewBehavior(comp.Type)
		if err != nil {
			s.log.Warn().Err(err).Str("entity", e.id).Str("type", comp.Type).
				Msg("dropping behavior of unknown type")
			continue
		}
		h := e.Attach(b)
		ctx.ApplyProperties(h, meta, b, comp.Properties)
		s.RegisterNamed(e.name, b)
	}
}

// loadPrefabEntity instantiates the template's default behaviors, then lays
// the entity's sparse overrides on top. A missing template leaves the
// entity behaviorless rather than failing the load.
func (s *Scene) loadPrefabEntity(
	ctx *document.Context, e *Entity, ed *document.EntityDocument, templates prefab.Source,
) {
	if templates == nil {
		s.log.Error().Str("entity", e.id).Str("prefab", ed.PrefabID).
			Msg("scene references a prefab but no template source was given")
		return
	}
	t, err := templates.Template(ed.PrefabID)
	if err != nil {
		s.log.Error().Err(err).Str("entity", e.id).Str("prefab", ed.PrefabID).
			Msg("prefab template is unavailable; entity loaded without behaviors")
		return
	}

	// Override keys are type identifiers and go through the same fallback
	// chain as behavior documents.
	overrides := make(map[string]map[string]any, len(ed.Overrides))
	for typeID, props := range ed.Overrides {
		meta, err := ctx.ResolveType(typeID)
		if err != nil {
			s.log.Warn().Err(err).Str("entity", e.id).Str("type", typeID).
				Msg("dropping overrides for unknown behavior type")
			continue
		}
		overrides[meta.FullID()] = props
	}

	for _, comp := range t.Behaviors {
		meta, b, err := ctx.NewBehavior(comp.Type)
		if err != nil {
			s.log.Warn().Err(err).Str("entity", e.id).Str("prefab", t.ID).
				Str("type", comp.Type).Msg("dropping template behavior of unknown type")
			continue
		}
		h := e.Attach(b)
		ctx.ApplyProperties(h, meta, b, comp.Properties)
		if props, ok := overrides[meta.FullID()]; ok {
			ctx.ApplyProperties(h, meta, b, props)
			delete(overrides, meta.FullID())
		}
		s.RegisterNamed(e.name, b)
	}

	for typeID := range overrides {
		s.log.Warn().Str("entity", e.id).Str("prefab", t.ID).Str("type", typeID).
			Msg("override targets a behavior the template does not carry; ignored")
	}
}

// FindBehavior returns the first behavior of type T anywhere in the scene,
// in walk order.
func FindBehavior[T behavior.Behavior](s *Scene) *T {
	var found *T
	s.Walk(func(e *Entity) {
		if found != nil {
			return
		}
		found = Get[T](e)
	})
	return found
}
