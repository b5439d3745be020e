package detection

// Overlay projection: mapping detection boxes from frame coordinates into
// the coordinate space of the surface they're displayed on. The displayed
// size of a frame usually differs from its native size, so renderers re-run
// this on every resize and on every new Result. All of this is pure math.

// DisplayRect is a box in display coordinates, expressed as origin + size
// (which is what drawing surfaces want, as opposed to the x1y1x2y2 form that
// travels on the wire).
type DisplayRect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// ProjectBox scales a detection box from frame space (frameW x frameH) to
// display space (displayW x displayH), clipping the result to the visible
// area. Out-of-range boxes are legal on the wire; clipping happens here.
func ProjectBox(b Box, frameW, frameH, displayW, displayH int) DisplayRect {
	if frameW <= 0 {
		frameW = DefaultFrameWidth
	}
	if frameH <= 0 {
		frameH = DefaultFrameHeight
	}
	scaleX := float32(displayW) / float32(frameW)
	scaleY := float32(displayH) / float32(frameH)
	clipped := b.Clamp(float32(frameW), float32(frameH))
	return DisplayRect{
		X:      clipped.X1() * scaleX,
		Y:      clipped.Y1() * scaleY,
		Width:  clipped.Width() * scaleX,
		Height: clipped.Height() * scaleY,
	}
}

// LabelAnchor returns the position where a label should be drawn for a
// projected box: above the box's top-left corner, but never above the top
// edge of the display surface.
func LabelAnchor(box DisplayRect, labelHeight float32) (x, y float32) {
	x = box.X
	y = box.Y - labelHeight
	if y < 0 {
		y = 0
	}
	return x, y
}
