package document_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sceneforge/sceneforge/document"
)

func validDoc() *document.SceneDocument {
	return &document.SceneDocument{
		Version: document.Version,
		Name:    "arena",
		Entities: []document.EntityDocument{
			{ID: "root", Name: "Root", Active: true},
			{ID: "child", Name: "Child", Active: true, ParentID: "root"},
		},
	}
}

func TestSceneDocumentValidate(t *testing.T) {
	assert.NilError(t, validDoc().Validate())
}

func TestValidateRejectsBadVersion(t *testing.T) {
	doc := validDoc()
	doc.Version = document.Version + 1
	assert.ErrorIs(t, doc.Validate(), document.ErrUnsupportedVersion)

	doc.Version = 0
	assert.ErrorIs(t, doc.Validate(), document.ErrUnsupportedVersion)
}

func TestValidateRejectsDanglingParent(t *testing.T) {
	doc := validDoc()
	doc.Entities[1].ParentID = "missing"

	err := doc.Validate()
	assert.ErrorIs(t, err, document.ErrDanglingParent)
	// The failure names the offending entity.
	assert.ErrorContains(t, err, "child")
	assert.ErrorContains(t, err, "missing")
}

func TestValidateRejectsParentCycles(t *testing.T) {
	// Every parent id resolves, but the chain never reaches a root.
	doc := validDoc()
	doc.Entities[0].ParentID = "child"

	err := doc.Validate()
	assert.ErrorIs(t, err, document.ErrParentCycle)
	// The failure names the offending entity.
	assert.ErrorContains(t, err, `"root"`)

	doc = validDoc()
	doc.Entities[0].ParentID = "root"
	assert.ErrorIs(t, doc.Validate(), document.ErrParentCycle)
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	doc := validDoc()
	doc.Entities[1].ID = "root"
	doc.Entities[1].ParentID = ""
	assert.ErrorIs(t, doc.Validate(), document.ErrDuplicateEntityID)
}

func TestValidateRejectsMixedEntityForms(t *testing.T) {
	doc := validDoc()
	doc.Entities[0].PrefabID = "enemy"
	doc.Entities[0].Components = []document.BehaviorDocument{{Type: "x"}}
	assert.ErrorIs(t, doc.Validate(), document.ErrMixedEntityForms)

	doc = validDoc()
	doc.Entities[0].Overrides = map[string]map[string]any{"x": {}}
	assert.ErrorIs(t, doc.Validate(), document.ErrMixedEntityForms)
}

func TestDecodeSceneJSONAndYAML(t *testing.T) {
	jsonDoc := []byte(`{
		"version": 1,
		"name": "arena",
		"entities": [
			{"id": "root", "name": "Root", "active": true, "order": 0},
			{"id": "child", "name": "Child", "active": true, "parentId": "root", "order": 1}
		]
	}`)
	doc, err := document.DecodeScene(jsonDoc)
	assert.NilError(t, err)
	assert.Equal(t, doc.Name, "arena")
	assert.Equal(t, len(doc.Entities), 2)
	assert.Equal(t, doc.Entities[1].ParentID, "root")

	yamlDoc := []byte(`
version: 1
name: arena
entities:
  - id: root
    name: Root
    active: true
  - id: child
    name: Child
    active: true
    parentId: root
`)
	fromYAML, err := document.DecodeSceneYAML(yamlDoc)
	assert.NilError(t, err)
	assert.Equal(t, fromYAML.Name, "arena")
	assert.Equal(t, len(fromYAML.Entities), 2)
	assert.Equal(t, fromYAML.Entities[1].ParentID, "root")
}

func TestEncodeSceneRoundTrip(t *testing.T) {
	doc := validDoc()
	doc.Camera = document.CameraDocument{Position: [2]float64{3, 4}, Zoom: 1.5}

	bz, err := document.EncodeScene(doc)
	assert.NilError(t, err)
	back, err := document.DecodeScene(bz)
	assert.NilError(t, err)
	assert.DeepEqual(t, back, doc)
}
