package frustum

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/glview/pkg/geom"
)

// lookDownZ is a 90° frustum at the origin looking down -Z, near 1, far 100.
func lookDownZ() mgl64.Mat4 {
	proj := mgl64.Perspective(mgl64.DegToRad(90), 1, 1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func TestUpdateReturnsFalseForSameMatrix(t *testing.T) {
	f := &Frustum{}
	m := lookDownZ()
	require.True(t, f.Update(m))
	assert.False(t, f.Update(m))
	assert.Equal(t, m, f.Matrix())

	assert.True(t, f.Update(mgl64.Ident4()))
}

func TestPlanesAreNormalised(t *testing.T) {
	f := New(lookDownZ())
	for i, p := range f.Planes() {
		assert.InDelta(t, 1, p.Normal.Len(), 1e-12, "plane %d", i)
	}
	near := f.Planes()[Near]
	assert.InDelta(t, -1, near.Normal[2], 1e-12)
	assert.InDelta(t, -1, near.Distance, 1e-12)
}

func TestLocalizeSphere(t *testing.T) {
	f := New(lookDownZ())

	cases := []struct {
		name   string
		center mgl64.Vec3
		radius float64
		want   Localization
	}{
		{"centred", mgl64.Vec3{0, 0, -10}, 1, Inside},
		{"behind eye", mgl64.Vec3{0, 0, 10}, 1, Outside},
		{"far left", mgl64.Vec3{-20, 0, -10}, 1, Outside},
		{"beyond far", mgl64.Vec3{0, 0, -200}, 1, Outside},
		{"across near", mgl64.Vec3{0, 0, -1}, 0.5, Intersect},
		{"across right", mgl64.Vec3{10, 0, -10}, 1, Intersect},
		{"enclosing", mgl64.Vec3{0, 0, -50}, 500, Intersect},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, f.LocalizeSphere(c.center, c.radius))
		})
	}
}

func TestLocalizeBox(t *testing.T) {
	f := New(lookDownZ())
	in := geom.NewBoundingBox(mgl64.Vec3{-1, -1, -11}, mgl64.Vec3{1, 1, -9})
	out := geom.NewBoundingBox(mgl64.Vec3{-1, -1, 9}, mgl64.Vec3{1, 1, 11})

	assert.Equal(t, Inside, f.LocalizeBox(in))
	assert.Equal(t, Outside, f.LocalizeBox(out))
	assert.Equal(t, Outside, f.LocalizeBox(geom.BoundingBox{}))
}

func TestZeroFrustumAcceptsEverything(t *testing.T) {
	var f Frustum
	assert.Equal(t, Inside, f.LocalizeSphere(mgl64.Vec3{1e9, 0, 0}, 1))
}

func TestLocalizationString(t *testing.T) {
	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "intersect", Intersect.String())
	assert.Equal(t, "outside", Outside.String())
}
