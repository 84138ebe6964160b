package behavior_test

import (
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/sceneforge/sceneforge/asset"
	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/vmath"
)

type Facing int

const (
	FaceLeft Facing = iota
	FaceRight
)

type TransformBehavior struct {
	behavior.Base
	Position vmath.Vec2 `scene:"position"`
	Rotation float64    `scene:"rotation"`
}

func (TransformBehavior) Name() string { return "TransformBehavior" }

type SpriteBehavior struct {
	behavior.Base
	Texture asset.Handle `scene:"texture" asset:"texture"`
	Layer   int          `scene:"layer"`
	Debug   string       `scene:"-"`

	hidden bool
}

func (SpriteBehavior) Name() string { return "SpriteBehavior" }

type MotionState struct {
	Velocity vmath.Vec2 `scene:"velocity"`
}

type MoverBehavior struct {
	behavior.Base
	MotionState
	Speed     float64           `scene:"speed"`
	Facing    Facing            `scene:"facing"`
	Waypoints []vmath.Vec2      `scene:"waypoints"`
	Labels    map[string]string `scene:"labels"`

	Transform behavior.Ref[TransformBehavior] `scene:"transform" ref:"self,required"`
	Target    behavior.Ref[TransformBehavior] `scene:"target" ref:"key"`
}

func (MoverBehavior) Name() string { return "MoverBehavior" }

func newTestCatalogue(t *testing.T) *behavior.Catalogue {
	t.Helper()
	cat := behavior.NewCatalogue(zerolog.Nop())
	behavior.MustRegisterEnum(cat, map[Facing]string{
		FaceLeft:  "left",
		FaceRight: "right",
	})
	behavior.MustRegister[TransformBehavior](cat)
	behavior.MustRegister[SpriteBehavior](cat)
	behavior.MustRegister[MoverBehavior](cat, behavior.WithCategory[MoverBehavior]("movement"))
	return cat
}

func TestRegisterBuildsFieldsInDeclarationOrder(t *testing.T) {
	cat := newTestCatalogue(t)

	meta, err := cat.ByFullID(behavior.FullIDOf(&MoverBehavior{}))
	assert.NilError(t, err)

	// Embedded struct fields come first, key-ref mirrors sit where the
	// reference is declared.
	var names []string
	for _, f := range meta.Fields() {
		names = append(names, f.Name)
	}
	assert.DeepEqual(t, names, []string{"velocity", "speed", "facing", "waypoints", "labels", "target"})

	speed, ok := meta.Field("speed")
	assert.Assert(t, ok)
	assert.Equal(t, speed.Kind, behavior.KindFloat)

	facing, ok := meta.Field("facing")
	assert.Assert(t, ok)
	assert.Equal(t, facing.Kind, behavior.KindEnum)
	v, ok := facing.Enum.Value("right")
	assert.Assert(t, ok)
	assert.Equal(t, v, int64(FaceRight))

	waypoints, ok := meta.Field("waypoints")
	assert.Assert(t, ok)
	assert.Equal(t, waypoints.Kind, behavior.KindList)
	assert.Equal(t, waypoints.Elem, behavior.KindVec2)

	labels, ok := meta.Field("labels")
	assert.Assert(t, ok)
	assert.Equal(t, labels.Kind, behavior.KindMap)
	assert.Equal(t, labels.Key, behavior.KindString)
	assert.Equal(t, labels.Elem, behavior.KindString)
}

func TestRegisterSkipsHiddenFields(t *testing.T) {
	cat := newTestCatalogue(t)

	meta, err := cat.ByFullID(behavior.FullIDOf(&SpriteBehavior{}))
	assert.NilError(t, err)

	_, ok := meta.Field("Debug")
	assert.Assert(t, !ok)
	_, ok = meta.Field("hidden")
	assert.Assert(t, !ok)

	texture, ok := meta.Field("texture")
	assert.Assert(t, ok)
	assert.Equal(t, texture.Kind, behavior.KindAsset)
	assert.Equal(t, texture.AssetKind, asset.KindTexture)
}

func TestRegisterBuildsReferences(t *testing.T) {
	cat := newTestCatalogue(t)

	meta, err := cat.ByFullID(behavior.FullIDOf(&MoverBehavior{}))
	assert.NilError(t, err)

	refs := meta.References()
	assert.Equal(t, len(refs), 2)

	assert.Equal(t, refs[0].Name, "transform")
	assert.Equal(t, refs[0].Source, behavior.SourceSelf)
	assert.Assert(t, refs[0].Required)
	assert.Equal(t, refs[0].TargetName, "TransformBehavior")

	assert.Equal(t, refs[1].Name, "target")
	assert.Equal(t, refs[1].Source, behavior.SourceKey)
	assert.Assert(t, !refs[1].Required)

	// Key references mirror into the field list as text; the mirror has no
	// backing struct field.
	target, ok := meta.Field("target")
	assert.Assert(t, ok)
	assert.Assert(t, target.IsKeyRef())
	assert.Equal(t, target.Kind, behavior.KindString)

	_, ok = meta.Field("transform")
	assert.Assert(t, !ok)
}

func TestRegisterTwiceIsNoOp(t *testing.T) {
	cat := newTestCatalogue(t)
	before := len(cat.Types())

	assert.NilError(t, behavior.Register[MoverBehavior](cat))
	assert.Equal(t, len(cat.Types()), before)
}

type badChanBehavior struct {
	behavior.Base
	Pipe chan int `scene:"pipe"`
}

func (badChanBehavior) Name() string { return "badChanBehavior" }

type badRefTagBehavior struct {
	behavior.Base
	Transform behavior.Ref[TransformBehavior] `scene:"transform"`
}

func (badRefTagBehavior) Name() string { return "badRefTagBehavior" }

func TestRegisterRejectsUnsupportedShapes(t *testing.T) {
	cat := behavior.NewCatalogue(zerolog.Nop())

	err := behavior.Register[badChanBehavior](cat)
	assert.Assert(t, err != nil)
	_, err = cat.ByFullID(behavior.FullIDOf(&badChanBehavior{}))
	assert.ErrorIs(t, err, behavior.ErrNotRegistered)

	err = behavior.Register[badRefTagBehavior](cat)
	assert.Assert(t, err != nil)
}

func TestFieldGetSetRoundTrip(t *testing.T) {
	cat := newTestCatalogue(t)

	meta, err := cat.ByFullID(behavior.FullIDOf(&MoverBehavior{}))
	assert.NilError(t, err)

	b := meta.New()
	speed, _ := meta.Field("speed")
	assert.NilError(t, speed.Set(b, float64(4.5)))
	assert.Equal(t, speed.Get(b), 4.5)
	assert.Equal(t, b.(*MoverBehavior).Speed, 4.5)

	facing, _ := meta.Field("facing")
	assert.NilError(t, facing.Set(b, int64(FaceRight)))
	assert.Equal(t, b.(*MoverBehavior).Facing, FaceRight)

	velocity, _ := meta.Field("velocity")
	assert.NilError(t, velocity.Set(b, vmath.Vec2{X: 1, Y: 2}))
	assert.Equal(t, b.(*MoverBehavior).Velocity, vmath.Vec2{X: 1, Y: 2})
}

type uiButton struct{ behavior.Base }

func (uiButton) Name() string { return "Button" }

type menuButton struct{ behavior.Base }

func (menuButton) Name() string { return "Button" }

func TestShortNameCollisionDisablesFallback(t *testing.T) {
	cat := behavior.NewCatalogue(zerolog.Nop())
	behavior.MustRegister[uiButton](cat)

	meta, err := cat.ByShortName("Button")
	assert.NilError(t, err)
	assert.Equal(t, meta.FullID(), behavior.FullIDOf(&uiButton{}))

	// The second registration succeeds but takes the short name down with it.
	behavior.MustRegister[menuButton](cat)
	_, err = cat.ByShortName("Button")
	assert.ErrorIs(t, err, behavior.ErrShortNameAmbiguous)
	assert.Assert(t, cat.IsShortNameAmbiguous("Button"))

	collisions := cat.Collisions()
	assert.Equal(t, len(collisions["Button"]), 2)

	// Both types stay loadable by full id.
	_, err = cat.ByFullID(behavior.FullIDOf(&uiButton{}))
	assert.NilError(t, err)
	_, err = cat.ByFullID(behavior.FullIDOf(&menuButton{}))
	assert.NilError(t, err)
}

func TestCategoriesOrdering(t *testing.T) {
	cat := newTestCatalogue(t)

	categories := cat.Categories()
	assert.Equal(t, len(categories), 2)
	assert.Equal(t, categories[0].Name, "movement")
	assert.Equal(t, categories[1].Name, "other")

	// Within a category types sort by short name.
	assert.Equal(t, categories[1].Types[0].ShortName(), "SpriteBehavior")
	assert.Equal(t, categories[1].Types[1].ShortName(), "TransformBehavior")
}
