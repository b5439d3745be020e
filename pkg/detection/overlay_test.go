package detection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectBoxIdentity(t *testing.T) {
	// When display size == frame size, the projection is a no-op.
	b := MakeBox(17, 42, 200, 300)
	r := ProjectBox(b, 640, 360, 640, 360)
	require.Equal(t, DisplayRect{X: 17, Y: 42, Width: 183, Height: 258}, r)
}

func TestProjectBoxScales(t *testing.T) {
	b := MakeBox(0, 0, 320, 180)
	r := ProjectBox(b, 640, 360, 1280, 720)
	require.Equal(t, DisplayRect{X: 0, Y: 0, Width: 640, Height: 360}, r)

	// Non-uniform scaling
	r = ProjectBox(b, 640, 360, 640, 720)
	require.Equal(t, DisplayRect{X: 0, Y: 0, Width: 320, Height: 360}, r)
}

func TestProjectBoxClips(t *testing.T) {
	// Out-of-range boxes get clipped to the frame before scaling
	b := MakeBox(-100, -100, 1000, 1000)
	r := ProjectBox(b, 640, 360, 640, 360)
	require.Equal(t, DisplayRect{X: 0, Y: 0, Width: 640, Height: 360}, r)
}

func TestProjectBoxDefaultsFrameSize(t *testing.T) {
	b := MakeBox(0, 0, 640, 360)
	r := ProjectBox(b, 0, 0, 640, 360)
	require.Equal(t, DisplayRect{X: 0, Y: 0, Width: 640, Height: 360}, r)
}

func TestLabelAnchor(t *testing.T) {
	x, y := LabelAnchor(DisplayRect{X: 50, Y: 100, Width: 10, Height: 10}, 16)
	require.Equal(t, float32(50), x)
	require.Equal(t, float32(84), y)

	// Label never renders above the top edge
	x, y = LabelAnchor(DisplayRect{X: 50, Y: 5, Width: 10, Height: 10}, 16)
	require.Equal(t, float32(50), x)
	require.Equal(t, float32(0), y)
}
