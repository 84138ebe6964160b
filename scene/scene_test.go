package scene_test

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/sceneforge/sceneforge/scene"
)

func TestEntityReparenting(t *testing.T) {
	s := scene.New(newCatalogue(t), zerolog.Nop())

	a, err := s.NewEntity("a", "A")
	assert.NilError(t, err)
	b, err := s.NewEntity("b", "B")
	assert.NilError(t, err)
	c, err := s.NewEntity("c", "C")
	assert.NilError(t, err)

	assert.Equal(t, len(s.Roots()), 3)

	b.SetParent(a)
	c.SetParent(a)
	assert.Equal(t, len(s.Roots()), 1)
	assert.DeepEqual(t, a.ChildEntities(), []*scene.Entity{b, c},
		cmp.Comparer(func(x, y *scene.Entity) bool { return x == y }))

	c.SetParent(nil)
	assert.Equal(t, len(s.Roots()), 2)
	assert.Equal(t, len(a.ChildEntities()), 1)

	// A root's Parent is a true nil interface.
	assert.Assert(t, a.Parent() == nil)
}

func TestNewEntityGeneratesIDs(t *testing.T) {
	s := scene.New(newCatalogue(t), zerolog.Nop())

	e, err := s.NewEntity("", "Anon")
	assert.NilError(t, err)
	assert.Assert(t, e.ID() != "")
	assert.Equal(t, s.Entity(e.ID()), e)

	_, err = s.NewEntity(e.ID(), "Clash")
	assert.ErrorIs(t, err, scene.ErrEntityExists)
}

func TestAttachAssignsDistinctHandles(t *testing.T) {
	s := scene.New(newCatalogue(t), zerolog.Nop())
	e, err := s.NewEntity("e", "E")
	assert.NilError(t, err)

	first := &Body{}
	second := &Body{}
	h1 := e.Attach(first)
	h2 := e.Attach(second)
	assert.Assert(t, h1 != h2)

	got, ok := e.HandleOf(second)
	assert.Assert(t, ok)
	assert.Equal(t, got, h2)

	assert.Equal(t, scene.Get[Body](e), first)
}

func TestRegistryLookupChecksType(t *testing.T) {
	s := scene.New(newCatalogue(t), zerolog.Nop())

	body := &Body{}
	turret := &Turret{}
	s.RegisterNamed("tower", turret)
	s.RegisterNamed("tower", body)

	assert.Equal(t, s.Lookup("tower", reflect.TypeOf(Body{})), body)
	assert.Equal(t, s.Lookup("tower", reflect.TypeOf(Turret{})), turret)
	assert.Assert(t, s.Lookup("gone", reflect.TypeOf(Body{})) == nil)
}

func TestTeardownClearsSceneState(t *testing.T) {
	ctx := newLoadContext(t, nil)
	s, err := scene.Load(ctx, arenaDoc(), nil)
	assert.NilError(t, err)
	assert.Assert(t, s.Pending().Len() > 0)

	s.Teardown()
	assert.Equal(t, s.Pending().Len(), 0)
	assert.Equal(t, len(s.Roots()), 0)
	assert.Assert(t, s.Entity("player") == nil)
	assert.Assert(t, s.Lookup("Enemy", reflect.TypeOf(Body{})) == nil)
}
