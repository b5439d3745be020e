package server

import (
	"crypto/subtle"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/staticfiles"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/roadwatch/roadwatch/pkg/www"
)

//go:embed www
var staticWWW embed.FS

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	// protected creates an HTTP handler that requires the shared API key in
	// the x-api-key header. When no key is configured, the check is skipped
	// so that a bare dev setup works out of the box.
	protected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if s.cfg.APIKey != "" {
				key := r.Header.Get("x-api-key")
				if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) != 1 {
					s.metrics.FramesRejected.Add(1)
					www.PanicUnauthorized()
				}
			}
			handle(w, r, params)
		})
	}

	// ratelimited creates a protected handler with a per-IP rate limit.
	// Each endpoint gets its own limiter, so no endpoint key func is needed.
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		protected(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	// unprotected creates an HTTP handler that is accessible without the API key
	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	unprotected("GET", "/api/health", s.httpHealth)
	ratelimited("POST", "/api/detect", s.httpDetect, 30, time.Second)
	unprotected("GET", "/api/stream", s.httpStream)
	unprotected("GET", "/api/alerts", s.httpAlerts)
	unprotected("GET", "/uploads/:name", s.httpUploadedFrame)

	router.Handler("GET", "/metrics", s.metrics.Handler())

	isImmutable := true
	var fsys fs.FS
	fsysRoot := "www"
	fsys = staticWWW
	if s.HotReloadWWW {
		relRoot := "server/www"
		absRoot, err := filepath.Abs(relRoot)
		if err != nil {
			s.Log.Errorf("Failed to resolve static file directory %v: %v", relRoot, err)
			return errors.New("Failed to resolve static file directory for hot reload")
		}
		s.Log.Infof("Serving static files from %v, with hot reload", absRoot)
		fsys = os.DirFS(absRoot)
		fsysRoot = ""
		isImmutable = false
	}

	static, err := staticfiles.NewCachedStaticFileServer(fsys, fsysRoot, []string{"/api/", "/uploads/", "/metrics"}, s.Log, isImmutable, nil)
	if err != nil {
		s.Log.Warnf("Error in static files: %v", err)
	}
	router.NotFound = static

	s.httpRouter = router
	return nil
}
