package detect

import (
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// Alert promotion: a detection becomes an Alert when its confidence reaches
// the alert threshold. Alerts carry a small JPEG thumbnail of the frame so
// that a notification feed can show a preview without fetching the original.

const (
	DefaultAlertConfThreshold = 0.5
	ThumbnailMaxSize          = 320
	ThumbnailQuality          = 70
)

type Alerter struct {
	ConfThreshold float32 // Detections at or above this confidence are promoted
}

func NewAlerter(confThreshold float32) *Alerter {
	if confThreshold <= 0 {
		confThreshold = DefaultAlertConfThreshold
	}
	return &Alerter{
		ConfThreshold: confThreshold,
	}
}

// Promote returns the alerts derived from objects.
// The thumbnail is computed once and shared by all alerts of this frame
// (a Result is immutable after construction, so sharing is safe).
func (a *Alerter) Promote(frame *Frame, objects []detection.Detection, now time.Time) []detection.Alert {
	alerts := []detection.Alert{}
	var thumb []byte
	for _, obj := range objects {
		if obj.Confidence < a.ConfThreshold {
			continue
		}
		if thumb == nil && frame.Image != nil {
			thumb = Thumbnail(frame.Image, ThumbnailMaxSize, ThumbnailQuality)
		}
		alerts = append(alerts, detection.Alert{
			Label:      obj.Label,
			Confidence: obj.Confidence,
			Timestamp:  detection.AlertTimestamp(now),
			Thumb:      thumb,
		})
	}
	return alerts
}

// Thumbnail scales img down so that its largest dimension is maxSize, and
// compresses it as JPEG. Images already small enough are not scaled up.
// Returns nil on compression failure.
func Thumbnail(img *cimg.Image, maxSize, quality int) []byte {
	w, h := img.Width, img.Height
	if w > maxSize || h > maxSize {
		if w >= h {
			h = h * maxSize / w
			w = maxSize
		} else {
			w = w * maxSize / h
			h = maxSize
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		img = cimg.ResizeNew(img, w, h, nil)
	}
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, quality, 0))
	if err != nil {
		return nil
	}
	return jpg
}
