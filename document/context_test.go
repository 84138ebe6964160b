package document_test

import (
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/document"
	"github.com/sceneforge/sceneforge/resolve"
	"github.com/sceneforge/sceneforge/vmath"
)

type GuardBehavior struct {
	behavior.Base
	Post   vmath.Vec2 `scene:"post"`
	Radius float64    `scene:"radius"`

	Partner behavior.Ref[GuardBehavior]     `scene:"partner" ref:"key"`
	Squad   behavior.RefList[GuardBehavior] `scene:"squad" ref:"key"`
	Leader  behavior.Ref[GuardBehavior]     `scene:"leader" ref:"parent"`
}

func (GuardBehavior) Name() string { return "GuardBehavior" }

type PatrolBehavior struct {
	behavior.Base
	Route []vmath.Vec2 `scene:"route"`
}

func (PatrolBehavior) Name() string { return "PatrolBehavior" }

func newTestContext(t *testing.T, migrations *document.Migrations) *document.Context {
	t.Helper()
	cat := behavior.NewCatalogue(zerolog.Nop())
	behavior.MustRegister[GuardBehavior](cat)
	behavior.MustRegister[PatrolBehavior](cat)
	return document.NewContext(cat, migrations, resolve.NewPendingKeyTable(), nil, zerolog.Nop())
}

func TestResolveTypeFullID(t *testing.T) {
	ctx := newTestContext(t, nil)

	fullID := behavior.FullIDOf(&GuardBehavior{})
	meta, err := ctx.ResolveType(fullID)
	assert.NilError(t, err)
	assert.Equal(t, meta.FullID(), fullID)
	assert.Equal(t, len(ctx.FallbackEvents()), 0)
}

func TestResolveTypeThroughMigration(t *testing.T) {
	migrations := document.NewMigrations()
	fullID := behavior.FullIDOf(&GuardBehavior{})
	assert.NilError(t, migrations.Add("legacy.guards.Sentry", fullID))
	ctx := newTestContext(t, migrations)

	// Resolving the same legacy id repeatedly records one event.
	for i := 0; i < 3; i++ {
		meta, err := ctx.ResolveType("legacy.guards.Sentry")
		assert.NilError(t, err)
		assert.Equal(t, meta.FullID(), fullID)
	}
	events := ctx.FallbackEvents()
	assert.Equal(t, len(events), 1)
	assert.Equal(t, events[0], document.FallbackEvent{From: "legacy.guards.Sentry", To: fullID})
}

func TestResolveTypeShortNameFallback(t *testing.T) {
	ctx := newTestContext(t, nil)

	meta, err := ctx.ResolveType("old/pkg.GuardBehavior")
	assert.NilError(t, err)
	assert.Equal(t, meta.ShortName(), "GuardBehavior")

	events := ctx.FallbackEvents()
	assert.Equal(t, len(events), 1)
	assert.Equal(t, events[0].From, "old/pkg.GuardBehavior")
}

func TestResolveTypeUnknown(t *testing.T) {
	ctx := newTestContext(t, nil)

	_, err := ctx.ResolveType("nowhere.NoSuchBehavior")
	assert.ErrorIs(t, err, document.ErrUnknownType)
}

func TestFallbackEventsAreSnapshotted(t *testing.T) {
	migrations := document.NewMigrations()
	fullID := behavior.FullIDOf(&GuardBehavior{})
	assert.NilError(t, migrations.Add("legacy.A", fullID))
	assert.NilError(t, migrations.Add("legacy.B", fullID))
	ctx := newTestContext(t, migrations)

	_, err := ctx.ResolveType("legacy.A")
	assert.NilError(t, err)
	snapshot := ctx.FallbackEvents()
	_, err = ctx.ResolveType("legacy.B")
	assert.NilError(t, err)

	assert.Equal(t, len(snapshot), 1)
	assert.Equal(t, len(ctx.FallbackEvents()), 2)
}

func TestApplyPropertiesWritesFields(t *testing.T) {
	ctx := newTestContext(t, nil)
	meta, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	ctx.ApplyProperties(1, meta, b, map[string]any{
		"post":   []any{4.0, 5.0},
		"radius": 2.5,
	})

	guard := b.(*GuardBehavior)
	assert.Equal(t, guard.Post, vmath.Vec2{X: 4, Y: 5})
	assert.Equal(t, guard.Radius, 2.5)
}

func TestApplyPropertiesIgnoresUnknownFields(t *testing.T) {
	ctx := newTestContext(t, nil)
	meta, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	// Unknown names are schema drift from newer or older documents.
	ctx.ApplyProperties(1, meta, b, map[string]any{
		"radius":    3.0,
		"alertness": 0.9,
	})
	assert.Equal(t, b.(*GuardBehavior).Radius, 3.0)
}

func TestApplyPropertiesLeavesMismatchedFieldsAtDefault(t *testing.T) {
	ctx := newTestContext(t, nil)
	meta, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	ctx.ApplyProperties(1, meta, b, map[string]any{
		"post":   "not a vector",
		"radius": 2.5,
	})

	guard := b.(*GuardBehavior)
	assert.Equal(t, guard.Post, vmath.Vec2{})
	assert.Equal(t, guard.Radius, 2.5)
}

func TestApplyPropertiesRoutesKeysToPendingTable(t *testing.T) {
	ctx := newTestContext(t, nil)
	meta, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	h := resolve.Handle(42)
	ctx.ApplyProperties(h, meta, b, map[string]any{
		"partner": "captain",
		"squad":   []any{"alpha", "bravo"},
	})

	// The live fields stay unset until the resolver runs.
	guard := b.(*GuardBehavior)
	assert.Assert(t, !guard.Partner.IsSet())
	assert.Equal(t, guard.Squad.Len(), 0)

	key, ok := ctx.Pending.Get(h, "partner")
	assert.Assert(t, ok)
	assert.Equal(t, key, "captain")
	keys, ok := ctx.Pending.GetList(h, "squad")
	assert.Assert(t, ok)
	assert.DeepEqual(t, keys, []string{"alpha", "bravo"})
}

func TestWriteBehaviorOmitsHierarchyRefs(t *testing.T) {
	ctx := newTestContext(t, nil)
	_, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	guard := b.(*GuardBehavior)
	guard.Radius = 4.0
	// Resolved hierarchy and key references are live-object state.
	assert.NilError(t, guard.Leader.Bind(&GuardBehavior{}))
	assert.NilError(t, guard.Partner.Bind(&GuardBehavior{}))

	doc, err := ctx.WriteBehavior(9, guard)
	assert.NilError(t, err)
	assert.Equal(t, doc.Type, behavior.FullIDOf(guard))

	_, ok := doc.Properties["leader"]
	assert.Assert(t, !ok)
	_, ok = doc.Properties["partner"]
	assert.Assert(t, !ok)
	assert.Equal(t, doc.Properties["radius"], 4.0)
}

func TestWriteBehaviorEmitsPendingKeys(t *testing.T) {
	ctx := newTestContext(t, nil)
	meta, b, err := ctx.NewBehavior(behavior.FullIDOf(&GuardBehavior{}))
	assert.NilError(t, err)

	h := resolve.Handle(5)
	ctx.ApplyProperties(h, meta, b, map[string]any{
		"partner": "captain",
		"squad":   []any{"alpha", "bravo"},
	})

	doc, err := ctx.WriteBehavior(h, b)
	assert.NilError(t, err)
	assert.Equal(t, doc.Properties["partner"], "captain")
	assert.DeepEqual(t, doc.Properties["squad"], []string{"alpha", "bravo"})
}

func TestBehaviorDocumentRoundTrip(t *testing.T) {
	ctx := newTestContext(t, nil)

	src := document.BehaviorDocument{
		Type: behavior.FullIDOf(&GuardBehavior{}),
		Properties: map[string]any{
			"post":    []any{1.0, 2.0},
			"radius":  3.5,
			"partner": "captain",
		},
	}
	b, err := ctx.ReadBehavior(1, src)
	assert.NilError(t, err)

	out, err := ctx.WriteBehavior(1, b)
	assert.NilError(t, err)
	assert.Equal(t, out.Type, src.Type)
	assert.DeepEqual(t, out.Properties["post"], []float64{1, 2})
	assert.Equal(t, out.Properties["radius"], 3.5)
	assert.Equal(t, out.Properties["partner"], "captain")
}
