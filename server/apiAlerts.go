package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/roadwatch/roadwatch/pkg/detection"
	"github.com/roadwatch/roadwatch/pkg/www"
	"github.com/roadwatch/roadwatch/server/storage"
)

type healthJSON struct {
	Status   string `json:"status"`
	Detector string `json:"detector"`
	Time     string `json:"time"`
}

func (s *Server) httpHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &healthJSON{
		Status:   "ok",
		Detector: s.detector.Name(),
		Time:     detection.AlertTimestamp(time.Now()),
	})
}

type alertJSON struct {
	ID         int64   `json:"id"`
	Label      string  `json:"label"`
	Confidence float32 `json:"conf"`
	Timestamp  string  `json:"timestamp"`
	Frame      string  `json:"frame,omitempty"`
	Thumb      []byte  `json:"thumb,omitempty"`
}

// httpAlerts returns recent alerts, newest first. Optional query parameter
// "limit" caps the count (default 100).
func (s *Server) httpAlerts(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	recent, err := s.alerts.RecentAlerts(www.FormInt(r, "limit"))
	www.Check(err)
	out := make([]alertJSON, 0, len(recent))
	for _, rec := range recent {
		out = append(out, alertJSON{
			ID:         rec.ID,
			Label:      rec.Label,
			Confidence: rec.Confidence,
			Timestamp:  detection.AlertTimestamp(rec.Time.Get()),
			Frame:      rec.FrameName,
			Thumb:      rec.Thumb,
		})
	}
	www.SendJSON(w, out)
}

// httpUploadedFrame serves an archived frame back out of storage.
func (s *Server) httpUploadedFrame(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.storage == nil {
		www.PanicNotFound()
	}
	name := params.ByName("name")
	file, err := s.storage.ReadFile(name)
	if err != nil {
		if err == storage.ErrInvalidName {
			www.PanicBadRequestf("Invalid frame name")
		}
		www.PanicNotFound()
	}
	defer file.Reader.Close()
	w.Header().Set("Content-Type", "image/jpeg")
	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	if !file.ModifiedAt.IsZero() {
		w.Header().Set("Last-Modified", file.ModifiedAt.UTC().Format(http.TimeFormat))
	}
	io.Copy(w, file.Reader)
}
