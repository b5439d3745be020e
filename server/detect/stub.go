package detect

import (
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// StubDetector is the no-model detector: it accepts every frame and finds
// nothing. Returning an empty result is documented behavior, not an error.
type StubDetector struct {
}

func NewStubDetector() *StubDetector {
	return &StubDetector{}
}

func (d *StubDetector) Close() {
}

func (d *StubDetector) DetectObjects(frame *Frame, params *Params) ([]detection.Detection, error) {
	return []detection.Detection{}, nil
}

func (d *StubDetector) Name() string {
	return "stub"
}

// StaticDetector returns a canned set of objects for every frame, filtered by
// the confidence threshold. Used by tests and demo deployments.
type StaticDetector struct {
	Objects []detection.Detection
}

func (d *StaticDetector) Close() {
}

func (d *StaticDetector) DetectObjects(frame *Frame, params *Params) ([]detection.Detection, error) {
	threshold := params.ConfThreshold
	if threshold == 0 {
		threshold = DefaultConfThreshold
	}
	out := []detection.Detection{}
	for _, obj := range d.Objects {
		if obj.Confidence >= threshold {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (d *StaticDetector) Name() string {
	return "static"
}
