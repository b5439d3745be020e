package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/roadwatch/roadwatch/server/alertdb"
	"github.com/roadwatch/roadwatch/server/broadcast"
	"github.com/roadwatch/roadwatch/server/detect"
	"github.com/roadwatch/roadwatch/server/storage"
)

type Server struct {
	HotReloadWWW bool
	Log          logs.Log

	cfg        *Config
	detector   detect.Detector
	params     *detect.Params
	alerter    *detect.Alerter
	registry   *broadcast.Registry
	storage    storage.Storage // nil when frame persistence is disabled
	alerts     *alertdb.AlertDB
	metrics    *Metrics
	wsUpgrader websocket.Upgrader
	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

// NewServer wires up the detection pipeline, storage, alert history and
// broadcast registry. detector may not be nil; use detect.NewStubDetector()
// when running without a model.
func NewServer(logger logs.Log, cfg *Config, detector detect.Detector) (*Server, error) {
	var err error

	// Frame store
	var frameStore storage.Storage
	if cfg.SaveUploads {
		if cfg.GCSBucket != "" {
			frameStore, err = storage.NewStorageGCS(logger, cfg.GCSBucket)
		} else {
			frameStore, err = storage.NewStorageFS(logger, cfg.UploadDir)
		}
		if err != nil {
			return nil, err
		}
	}

	alertDB, err := alertdb.Open(logger, cfg.DBDir)
	if err != nil {
		return nil, err
	}

	registry := broadcast.NewRegistry(logger)

	params := detect.NewParams()
	if cfg.ConfThreshold > 0 {
		params.ConfThreshold = cfg.ConfThreshold
	}

	s := &Server{
		HotReloadWWW: cfg.HotReloadWWW,
		Log:          logger,
		cfg:          cfg,
		detector:     detector,
		params:       params,
		alerter:      detect.NewAlerter(cfg.AlertConf),
		registry:     registry,
		storage:      frameStore,
		alerts:       alertDB,
		wsUpgrader: websocket.Upgrader{
			// The browser client is served from this same process, but during
			// dev the page is often served off a vite host on another port.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.metrics = NewMetrics(
		func() float64 { return float64(registry.NumSubscribers()) },
		func() float64 { return float64(registry.NumDropped()) },
	)
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	logger.Infof("Detector '%v', confidence %.2f, alert threshold %.2f", detector.Name(), cfg.ConfThreshold, cfg.AlertConf)
	return s, nil
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Log.Warnf("HTTP shutdown: %v", err)
	}
	s.registry.Close()
	s.detector.Close()
	if err := s.alerts.Close(); err != nil {
		s.Log.Warnf("Closing alert DB: %v", err)
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
