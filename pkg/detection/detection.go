package detection

import (
	"time"
)

// Package detection holds the wire-level data model for a single frame
// submission: the detections found in the frame, and any alerts promoted
// from those detections.
//
// A Result is immutable once built. Handlers build one Result per submitted
// frame and then hand it off to the HTTP response writer and to broadcast
// subscribers; nobody mutates it after that.

// Default frame dimensions, applied when the submitter declares nothing and
// the frame bytes could not be decoded.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 360
)

// Detection is one axis-aligned box found in a frame, in the coordinate
// space of the frame's declared width/height.
type Detection struct {
	Box        Box     `json:"xyxy"`
	Confidence float32 `json:"conf"`
	Label      string  `json:"label"`
}

// Alert is a Detection that was promoted to "noteworthy".
// Thumb is a JPEG thumbnail of the frame that triggered the alert,
// marshaled as base64 (null when we couldn't decode the frame).
type Alert struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"conf"`
	Timestamp  string  `json:"timestamp"`
	Thumb      []byte  `json:"thumb"`
}

// Result is the outcome of one frame submission.
type Result struct {
	FrameWidth  int         `json:"frame_w"`
	FrameHeight int         `json:"frame_h"`
	Detections  []Detection `json:"detections"`
	Alerts      []Alert     `json:"alerts"`

	// Name of the stored copy of the frame, when upload storage is enabled.
	SavedName string `json:"saved_path,omitempty"`

	// Optional inline frame (annotated JPEG), used on the push stream when
	// the server is configured to push pixels and not just metadata.
	Frame []byte `json:"frame,omitempty"`
}

// NewResult builds a Result with valid frame dimensions.
// Zero or negative dimensions are replaced with the defaults, so
// FrameWidth/FrameHeight are always strictly positive.
// Detections and Alerts are non-nil so that they marshal as [] and not null.
func NewResult(frameWidth, frameHeight int) *Result {
	if frameWidth <= 0 {
		frameWidth = DefaultFrameWidth
	}
	if frameHeight <= 0 {
		frameHeight = DefaultFrameHeight
	}
	return &Result{
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		Detections:  []Detection{},
		Alerts:      []Alert{},
	}
}

// AddDetection appends a detection, clamping its box to the frame bounds.
// Clients must tolerate out-of-range boxes anyway, but we don't emit them.
func (r *Result) AddDetection(d Detection) {
	d.Box = d.Box.Clamp(float32(r.FrameWidth), float32(r.FrameHeight))
	r.Detections = append(r.Detections, d)
}

// Timestamp format used for alerts (UTC, second precision is fine).
func AlertTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
