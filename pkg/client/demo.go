package client

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// DefaultDemoInterval is how often the demo generator fabricates a result.
const DefaultDemoInterval = 5 * time.Second

// Generator fabricates detection results locally, for demoing the UI without
// a server or a camera. Every tick produces one detection with a random box
// and a confidence in [0.5, 0.95], which is always above the default alert
// threshold.
type Generator struct {
	log      logs.Log
	onResult func(*detection.Result)
	interval time.Duration
	frameW   int
	frameH   int
	label    string
	rng      *rand.Rand

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewGenerator(log logs.Log, onResult func(*detection.Result), interval time.Duration) *Generator {
	if interval <= 0 {
		interval = DefaultDemoInterval
	}
	return &Generator{
		log:      log,
		onResult: onResult,
		interval: interval,
		frameW:   detection.DefaultFrameWidth,
		frameH:   detection.DefaultFrameHeight,
		label:    "pothole",
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins the tick loop. Call Stop to end it.
func (g *Generator) Start() {
	g.stop = make(chan struct{})
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.onResult(g.makeResult(time.Now()))
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends the tick loop and waits for it to exit. After Stop returns,
// onResult will not be called again.
func (g *Generator) Stop() {
	close(g.stop)
	g.wg.Wait()
}

func (g *Generator) makeResult(now time.Time) *detection.Result {
	w := float32(g.frameW)
	h := float32(g.frameH)
	// Box somewhere in the frame, between 10% and 40% of its size
	bw := w * (0.1 + 0.3*g.rng.Float32())
	bh := h * (0.1 + 0.3*g.rng.Float32())
	x1 := (w - bw) * g.rng.Float32()
	y1 := (h - bh) * g.rng.Float32()
	conf := 0.5 + 0.45*g.rng.Float32()

	res := detection.NewResult(g.frameW, g.frameH)
	res.AddDetection(detection.Detection{
		Box:        detection.MakeBox(x1, y1, x1+bw, y1+bh),
		Confidence: conf,
		Label:      g.label,
	})
	res.Alerts = append(res.Alerts, detection.Alert{
		Label:      g.label,
		Confidence: conf,
		Timestamp:  detection.AlertTimestamp(now),
	})
	return res
}
