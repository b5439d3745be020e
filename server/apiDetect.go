package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/roadwatch/roadwatch/pkg/detection"
	"github.com/roadwatch/roadwatch/pkg/kibi"
	"github.com/roadwatch/roadwatch/pkg/www"
	"github.com/roadwatch/roadwatch/server/detect"
	"github.com/roadwatch/roadwatch/server/storage"
)

// httpDetect accepts one frame as multipart form data (field "frame"), runs
// detection, persists the frame and any alerts, publishes the result to
// stream subscribers, and returns the result to the submitter.
func (s *Server) httpDetect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if r.ContentLength > s.cfg.MaxFrameSize {
		s.metrics.FramesRejected.Add(1)
		www.PanicTooLargef("Frame exceeds maximum size of %v", kibi.Bytes(s.cfg.MaxFrameSize))
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFrameSize)

	file, hdr, err := r.FormFile("frame")
	if err != nil {
		s.metrics.FramesRejected.Add(1)
		if isBodyTooLarge(err) {
			www.PanicTooLargef("Frame exceeds maximum size of %v", kibi.Bytes(s.cfg.MaxFrameSize))
		}
		www.PanicBadRequestf("Missing form file 'frame'")
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		s.metrics.FramesRejected.Add(1)
		if isBodyTooLarge(err) {
			www.PanicTooLargef("Frame exceeds maximum size of %v", kibi.Bytes(s.cfg.MaxFrameSize))
		}
		www.Check(err)
	}
	if len(raw) == 0 {
		s.metrics.FramesRejected.Add(1)
		www.PanicBadRequestf("Empty frame")
	}

	// Declared dimensions, if the submitter sent them. They win over the
	// decoded image size, because boxes are interpreted in the submitter's
	// coordinate space.
	frame := detect.DecodeFrame(raw, www.FormInt(r, "frame_w"), www.FormInt(r, "frame_h"))

	objects, err := s.detector.DetectObjects(frame, s.params)
	www.Check(err)

	now := time.Now()
	result := detection.NewResult(frame.Width, frame.Height)
	for _, obj := range objects {
		result.AddDetection(obj)
	}
	result.Alerts = s.alerter.Promote(frame, objects, now)

	if s.storage != nil {
		name := storedFrameName(hdr.Filename, now)
		if err := storage.WriteFile(s.storage, name, bytes.NewReader(raw)); err != nil {
			// Storage failure shouldn't fail the submission. The result is
			// still valid, it just isn't archived.
			s.Log.Warnf("Failed to store frame '%v': %v", name, err)
		} else {
			result.SavedName = name
		}
	}

	if len(result.Alerts) > 0 {
		if err := s.alerts.AddAlerts(result.Alerts, result.SavedName); err != nil {
			s.Log.Warnf("Failed to record alerts: %v", err)
		}
	}

	s.metrics.FramesSubmitted.Add(1)
	s.metrics.DetectionsFound.Add(uint64(len(result.Detections)))
	s.metrics.AlertsRaised.Add(uint64(len(result.Alerts)))

	s.publishResult(result, frame)

	www.SendJSON(w, result)
}

// publishResult sends the result to all stream subscribers. When annotation
// is enabled and we have pixels, subscribers get a copy carrying the
// annotated frame. The HTTP response never includes the frame.
func (s *Server) publishResult(result *detection.Result, frame *detect.Frame) {
	out := result
	if s.cfg.AnnotateStream && frame.Image != nil {
		if annotated := detect.RenderAnnotated(frame, result.Detections); annotated != nil {
			clone := *result
			clone.Frame = annotated
			out = &clone
		}
	}
	s.registry.Publish(out)
	s.metrics.ResultsPublished.Add(1)
}

// storedFrameName produces the name under which a submitted frame is
// archived: upload millis, underscore, sanitized original filename.
func storedFrameName(original string, now time.Time) string {
	base := sanitizeFilename(original)
	if base == "" {
		base = "frame.jpg"
	}
	return fmt.Sprintf("%v_%v", now.UnixMilli(), base)
}

// sanitizeFilename strips path components and any character outside
// [a-zA-Z0-9._-], so that client-supplied names can't escape the storage
// root or confuse a filesystem.
func sanitizeFilename(name string) string {
	// Strip any path prefix. Browsers generally don't send one, but clients lie.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	b := strings.Builder{}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 100 {
		out = out[:100]
	}
	if strings.Trim(out, "._") == "" {
		return ""
	}
	return out
}

// mime/multipart does not always wrap the MaxBytesReader error in a way that
// errors.As can see, so we also match on the error text.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
