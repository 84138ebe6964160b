// Package prefab holds reusable entity templates: a named default behavior
// set that entity instances reference and sparsely override.
package prefab

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sceneforge/sceneforge/document"
)

var ErrTemplateNotFound = eris.New("prefab template not found")

// Template is one reusable default behavior set.
type Template struct {
	ID        string
	Name      string
	Behaviors []document.BehaviorDocument
}

// Behavior returns the template's document for the given type identifier.
func (t *Template) Behavior(typeID string) (*document.BehaviorDocument, bool) {
	for i := range t.Behaviors {
		if t.Behaviors[i].Type == typeID {
			return &t.Behaviors[i], true
		}
	}
	return nil, false
}

// Source is the template lookup capability the scene loader and writer
// consume.
type Source interface {
	Template(id string) (*Template, error)
}

// Library is the in-memory Source implementation.
type Library struct {
	templates map[string]*Template
}

func NewLibrary() *Library {
	return &Library{templates: make(map[string]*Template)}
}

// Add registers a template. Duplicate ids are rejected.
func (l *Library) Add(t *Template) error {
	if t.ID == "" {
		return eris.New("prefab template has no id")
	}
	if _, ok := l.templates[t.ID]; ok {
		return eris.Errorf("prefab template %q is already registered", t.ID)
	}
	l.templates[t.ID] = t
	return nil
}

func (l *Library) Template(id string) (*Template, error) {
	t, ok := l.templates[id]
	if !ok {
		return nil, eris.Wrapf(ErrTemplateNotFound, "id %q", id)
	}
	return t, nil
}

// IDs returns the registered template ids in sorted order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
