package scene

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/sceneforge/sceneforge/document"
	"github.com/sceneforge/sceneforge/prefab"
)

// Snapshot renders the scene as a portable document. Scratch entities store
// their full behavior list; prefab instances store only the sparse diff
// against their template, computed per behavior type. Unlike load, a missing
// template here is an error: saving would silently flatten the instance.
func Snapshot(ctx *document.Context, s *Scene, templates prefab.Source) (*document.SceneDocument, error) {
	doc := &document.SceneDocument{
		Version:   document.Version,
		Name:      s.name,
		Camera:    s.camera,
		Collision: s.collide,
	}
	if len(s.metadata) > 0 {
		doc.Metadata = make(map[string]any, len(s.metadata))
		for k, v := range s.metadata {
			doc.Metadata[k] = v
		}
	}

	var werr error
	s.Walk(func(e *Entity) {
		if werr != nil {
			return
		}
		ed, err := snapshotEntity(ctx, e, templates)
		if err != nil {
			werr = err
			return
		}
		doc.Entities = append(doc.Entities, *ed)
	})
	if werr != nil {
		return nil, werr
	}
	return doc, nil
}

func snapshotEntity(ctx *document.Context, e *Entity, templates prefab.Source) (*document.EntityDocument, error) {
	ed := &document.EntityDocument{
		ID:       e.id,
		Name:     e.name,
		Active:   e.active,
		Tag:      e.tag,
		Order:    e.order,
		PrefabID: e.prefabID,
	}
	if e.parent != nil {
		ed.ParentID = e.parent.id
	}

	if e.prefabID == "" {
		for _, att := range e.attached {
			bd, err := ctx.WriteBehavior(att.Handle, att.Behavior)
			if err != nil {
				return nil, eris.Wrapf(err, "entity %q", e.id)
			}
			ed.Components = append(ed.Components, bd)
		}
		return ed, nil
	}

	if templates == nil {
		return nil, eris.Errorf("entity %q references prefab %q but no template source was given", e.id, e.prefabID)
	}
	t, err := templates.Template(e.prefabID)
	if err != nil {
		return nil, eris.Wrapf(err, "saving entity %q", e.id)
	}

	// Template component types go through the same fallback chain as load, so
	// a template carrying legacy ids still lines up with the live behaviors.
	templateProps := make(map[string]map[string]any, len(t.Behaviors))
	for i := range t.Behaviors {
		meta, err := ctx.ResolveType(t.Behaviors[i].Type)
		if err != nil {
			continue
		}
		templateProps[meta.FullID()] = t.Behaviors[i].Properties
	}

	for _, att := range e.attached {
		bd, err := ctx.WriteBehavior(att.Handle, att.Behavior)
		if err != nil {
			return nil, eris.Wrapf(err, "entity %q", e.id)
		}
		baseline, err := baselineProperties(ctx, bd.Type, templateProps[bd.Type])
		if err != nil {
			return nil, eris.Wrapf(err, "entity %q behavior %q", e.id, bd.Type)
		}
		diff, err := overrideDiff(baseline, bd.Properties)
		if err != nil {
			return nil, eris.Wrapf(err, "diffing entity %q behavior %q against prefab %q", e.id, bd.Type, t.ID)
		}
		if len(diff) == 0 {
			continue
		}
		if ed.Overrides == nil {
			ed.Overrides = make(map[string]map[string]any)
		}
		ed.Overrides[bd.Type] = diff
	}
	return ed, nil
}

// baselineProperties reconstructs the full stored shape a pristine template
// instance would save: the type's defaults overlaid with the template's
// (possibly sparse) properties. Diffing live output against this keeps
// untouched fields out of the override set.
func baselineProperties(ctx *document.Context, typeID string, tmpl map[string]any) (map[string]any, error) {
	meta, err := ctx.Catalogue.ByFullID(typeID)
	if err != nil {
		return nil, err
	}
	defaults, err := ctx.WriteBehavior(0, meta.New())
	if err != nil {
		return nil, err
	}
	out := defaults.Properties
	for name, v := range tmpl {
		if _, ok := meta.Field(name); !ok {
			continue
		}
		out[name] = v
	}
	return out, nil
}

// overrideDiff returns the fields of live that differ from the template
// defaults, whole field values even when only part of a container changed.
// Fields present in the template but absent live map to an explicit nil.
func overrideDiff(template, live map[string]any) (map[string]any, error) {
	patch, err := jsondiff.Compare(template, live)
	if err != nil {
		return nil, eris.Wrap(err, "comparing against template defaults")
	}
	if len(patch) == 0 {
		return nil, nil
	}
	out := make(map[string]any)
	for _, op := range patch {
		field := firstPointerSegment(string(op.Path))
		if field == "" {
			continue
		}
		if v, ok := live[field]; ok {
			out[field] = v
		} else {
			out[field] = nil
		}
	}
	return out, nil
}

// firstPointerSegment extracts the top-level field name from a JSON pointer,
// undoing the ~1 and ~0 escapes.
func firstPointerSegment(ptr string) string {
	seg := strings.TrimPrefix(ptr, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.ReplaceAll(seg, "~1", "/")
	return strings.ReplaceAll(seg, "~0", "~")
}
