package vmath_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sceneforge/sceneforge/vmath"
)

func TestVec2(t *testing.T) {
	a := vmath.Vec2{X: 3, Y: 4}
	b := vmath.Vec2{X: 1, Y: 2}

	assert.Equal(t, a.Add(b), vmath.Vec2{X: 4, Y: 6})
	assert.Equal(t, a.Sub(b), vmath.Vec2{X: 2, Y: 2})
	assert.Equal(t, a.Scale(2), vmath.Vec2{X: 6, Y: 8})
	assert.Equal(t, a.Dot(b), 11.0)
	assert.Equal(t, a.Len(), 5.0)
}

func TestVec3Cross(t *testing.T) {
	x := vmath.Vec3{X: 1}
	y := vmath.Vec3{Y: 1}

	assert.Equal(t, x.Cross(y), vmath.Vec3{Z: 1})
	assert.Equal(t, y.Cross(x), vmath.Vec3{Z: -1})
	assert.Equal(t, x.Cross(x), vmath.Vec3{})
}

func TestVec4(t *testing.T) {
	a := vmath.Vec4{X: 1, Y: 2, Z: 3, W: 4}

	assert.Equal(t, a.Scale(2), vmath.Vec4{X: 2, Y: 4, Z: 6, W: 8})
	assert.Equal(t, a.Dot(a), 30.0)
}
