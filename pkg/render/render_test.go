package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccepts(t *testing.T) {
	rc := &Context{Mode: ModeNormal, Pass: PassOpaque}
	assert.True(t, rc.Accepts(false))
	assert.False(t, rc.Accepts(true))

	rc.Pass = PassTransparent
	assert.False(t, rc.Accepts(false))
	assert.True(t, rc.Accepts(true))

	rc.Mode = ModeSelection
	assert.True(t, rc.Accepts(false))
	assert.True(t, rc.Accepts(true))
	assert.True(t, rc.Selecting())
}

func TestAddTriangles(t *testing.T) {
	rc := &Context{}
	rc.AddTriangles(10)

	rc.Stats = &Stats{}
	rc.AddTriangles(10)
	rc.AddTriangles(2)
	assert.Equal(t, 2, rc.Stats.Geometries)
	assert.Equal(t, 12, rc.Stats.Triangles)

	rc.Stats.Reset()
	assert.Equal(t, Stats{}, *rc.Stats)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "normal", ModeNormal.String())
	assert.Equal(t, "selection", ModeSelection.String())
}
