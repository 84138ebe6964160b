// Package document defines the portable snapshot format for entities and
// scenes, and the read/write paths between documents and live behaviors. The
// document model is an in-memory tree of named values; bytes on disk are JSON
// (YAML accepted on read for tooling).
package document

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sceneforge/sceneforge/codec"
)

// Version is the current scene document format version.
const Version = 1

var (
	ErrUnsupportedVersion = eris.New("unsupported scene document version")
	ErrDanglingParent     = eris.New("entity parent id does not resolve")
	ErrParentCycle        = eris.New("entity parent chain forms a cycle")
	ErrMixedEntityForms   = eris.New("entity document mixes prefab and scratch forms")
	ErrDuplicateEntityID  = eris.New("duplicate entity id")
)

// BehaviorDocument is the portable snapshot of one behavior: its stable type
// identifier and the values of its declared fields. Hierarchy-sourced
// reference fields are never present; Key-sourced references appear as plain
// strings under their field name.
type BehaviorDocument struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// CameraDocument carries the scene camera settings.
type CameraDocument struct {
	Position [2]float64 `json:"position"`
	Zoom     float64    `json:"zoom"`
}

// EntityDocument is one node of the snapshot. Children reference their parent
// by id rather than nesting, keeping the structure flat and diff-friendly.
// Exactly one of the two forms is present: an explicit behavior list
// (scratch) or a prefab id plus sparse per-type overrides (prefab instance).
type EntityDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Tag      string `json:"tag,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Order    int    `json:"order"`

	PrefabID  string                    `json:"prefabId,omitempty"`
	Overrides map[string]map[string]any `json:"componentOverrides,omitempty"`

	Components []BehaviorDocument `json:"components,omitempty"`
}

// IsPrefabInstance reports whether the entity references a template.
func (e *EntityDocument) IsPrefabInstance() bool { return e.PrefabID != "" }

// IsScratch reports whether the entity carries its own behavior list.
func (e *EntityDocument) IsScratch() bool { return !e.IsPrefabInstance() }

// Validate checks the per-entity invariants.
func (e *EntityDocument) Validate() error {
	if e.ID == "" {
		return eris.New("entity document has no id")
	}
	if e.IsPrefabInstance() && len(e.Components) > 0 {
		return eris.Wrapf(ErrMixedEntityForms, "entity %q", e.ID)
	}
	if !e.IsPrefabInstance() && len(e.Overrides) > 0 {
		return eris.Wrapf(ErrMixedEntityForms, "entity %q carries overrides without a prefab id", e.ID)
	}
	return nil
}

// SceneDocument is the versioned snapshot of a whole scene.
type SceneDocument struct {
	Version   int              `json:"version"`
	Name      string           `json:"name"`
	Entities  []EntityDocument `json:"entities"`
	Camera    CameraDocument   `json:"camera"`
	Collision json.RawMessage  `json:"collision,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// Validate checks the document-wide invariants. Broken hierarchy links are
// fatal: a parent id that does not resolve, or a parent chain that loops back
// on itself, would silently corrupt the loaded graph, so both fail the whole
// document.
func (d *SceneDocument) Validate() error {
	if d.Version <= 0 || d.Version > Version {
		return eris.Wrapf(ErrUnsupportedVersion, "version %d (current %d)", d.Version, Version)
	}
	ids := make(map[string]struct{}, len(d.Entities))
	parents := make(map[string]string, len(d.Entities))
	for i := range d.Entities {
		e := &d.Entities[i]
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := ids[e.ID]; ok {
			return eris.Wrapf(ErrDuplicateEntityID, "entity %q", e.ID)
		}
		ids[e.ID] = struct{}{}
		parents[e.ID] = e.ParentID
	}
	for i := range d.Entities {
		e := &d.Entities[i]
		if e.ParentID == "" {
			continue
		}
		if _, ok := ids[e.ParentID]; !ok {
			return eris.Wrapf(ErrDanglingParent, "entity %q references parent %q", e.ID, e.ParentID)
		}
	}
	// Every entity must reach a root. A chain longer than the entity count
	// can only mean the parent links loop.
	for i := range d.Entities {
		e := &d.Entities[i]
		steps := 0
		for id := e.ParentID; id != ""; id = parents[id] {
			steps++
			if steps > len(d.Entities) {
				return eris.Wrapf(ErrParentCycle, "entity %q never reaches a root", e.ID)
			}
		}
	}
	return nil
}

// DecodeScene parses a JSON scene document.
func DecodeScene(bz []byte) (*SceneDocument, error) {
	doc, err := codec.Decode[SceneDocument](bz)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeSceneYAML parses a YAML scene document by funneling it through the
// JSON value tree, so both formats share one set of field names.
func DecodeSceneYAML(bz []byte) (*SceneDocument, error) {
	var raw any
	if err := yaml.Unmarshal(bz, &raw); err != nil {
		return nil, eris.Wrap(err, "decoding scene yaml")
	}
	jz, err := codec.Encode(raw)
	if err != nil {
		return nil, err
	}
	return DecodeScene(jz)
}

// EncodeScene renders a scene document as indented, diff-friendly JSON.
func EncodeScene(d *SceneDocument) ([]byte, error) {
	return codec.EncodeIndent(d)
}
