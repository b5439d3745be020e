package detection

import (
	"github.com/chewxy/math32"
)

// Box is an axis-aligned bounding box [x1,y1,x2,y2].
// It marshals to the wire as a plain 4-element JSON array.
type Box [4]float32

func MakeBox(x1, y1, x2, y2 float32) Box {
	return Box{x1, y1, x2, y2}
}

func (b Box) X1() float32 { return b[0] }
func (b Box) Y1() float32 { return b[1] }
func (b Box) X2() float32 { return b[2] }
func (b Box) Y2() float32 { return b[3] }

func (b Box) Width() float32 {
	return b[2] - b[0]
}

func (b Box) Height() float32 {
	return b[3] - b[1]
}

func (b Box) Area() float32 {
	return max(0, b.Width()) * max(0, b.Height())
}

// Clamp returns b restricted to [0,w] x [0,h].
func (b Box) Clamp(w, h float32) Box {
	return Box{
		math32.Min(math32.Max(b[0], 0), w),
		math32.Min(math32.Max(b[1], 0), h),
		math32.Min(math32.Max(b[2], 0), w),
		math32.Min(math32.Max(b[3], 0), h),
	}
}

func (b Box) Intersection(c Box) Box {
	x1 := math32.Max(b[0], c[0])
	y1 := math32.Max(b[1], c[1])
	x2 := math32.Min(b[2], c[2])
	y2 := math32.Min(b[3], c[3])
	return Box{x1, y1, math32.Max(x1, x2), math32.Max(y1, y2)}
}

// Intersection over Union
func (b Box) IOU(c Box) float32 {
	intersection := b.Intersection(c).Area()
	union := b.Area() + c.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
