package detect

import (
	"github.com/bmharper/cimg/v2"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// Package detect is the inference layer. The only implementation that ships
// today is a stub that finds nothing; the interfaces exist so that a real
// model can be swapped in without touching the HTTP layer.

const DefaultConfThreshold = 0.35

// Frame is one submitted still image, decoded when possible.
type Frame struct {
	Raw    []byte      // Encoded bytes, exactly as received
	Image  *cimg.Image // Decoded RGB pixels. Nil if the bytes could not be decoded.
	Width  int         // Frame coordinate space (declared by the submitter, or decoded, or defaulted)
	Height int
}

// DecodeFrame builds a Frame from raw encoded bytes and optional declared
// dimensions. Declared dimensions win over decoded ones; when neither is
// available we fall back to the package defaults, so Width/Height are always
// strictly positive.
func DecodeFrame(raw []byte, declaredW, declaredH int) *Frame {
	f := &Frame{
		Raw:    raw,
		Width:  declaredW,
		Height: declaredH,
	}
	if img, err := cimg.Decompress(raw); err == nil {
		if img.NChan() != 3 {
			img = img.ToRGB()
		}
		f.Image = img
		if f.Width <= 0 {
			f.Width = img.Width
		}
		if f.Height <= 0 {
			f.Height = img.Height
		}
	}
	if f.Width <= 0 {
		f.Width = detection.DefaultFrameWidth
	}
	if f.Height <= 0 {
		f.Height = detection.DefaultFrameHeight
	}
	return f
}

// Detection parameters
type Params struct {
	ConfThreshold float32 // Detections below this confidence are discarded. Zero value uses the default.
}

func NewParams() *Params {
	return &Params{
		ConfThreshold: DefaultConfThreshold,
	}
}

// Detector is given a frame, and returns zero or more detected objects.
type Detector interface {
	// Close the detector. Must be called when finished, real backends own
	// native resources.
	Close()

	// DetectObjects returns the objects detected in the frame, with boxes in
	// the frame's coordinate space.
	DetectObjects(frame *Frame, params *Params) ([]detection.Detection, error)

	// Name of the detector, for the health endpoint.
	Name() string
}
