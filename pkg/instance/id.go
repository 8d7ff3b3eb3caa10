package instance

import (
	"image/color"
	"sync/atomic"

	"github.com/chazu/glview/pkg/logging"
)

// ID identifies an instance for the lifetime of the process. 0 means
// "nothing" in picking.
type ID uint32

// MaxID is the largest ID the 24-bit selection colour can carry.
const MaxID ID = 1<<24 - 1

var lastID atomic.Uint32

func nextID() ID {
	id := ID(lastID.Add(1))
	if id == MaxID+1 {
		logging.Logger().Warn("instance: selection IDs exhausted, picking will alias", "id", id)
	}
	return id
}

// EncodeID packs the low 24 bits of id into the red, green and blue
// channels, least significant byte in red. Alpha is always 255.
func EncodeID(id ID) color.RGBA {
	return color.RGBA{
		R: uint8(id),
		G: uint8(id >> 8),
		B: uint8(id >> 16),
		A: 255,
	}
}

// DecodeColor is the inverse of EncodeID. Alpha is ignored.
func DecodeColor(c color.RGBA) ID {
	return ID(c.R) | ID(c.G)<<8 | ID(c.B)<<16
}
