// Package web serves the browser front-end: one upload/process view per
// browser, backed by a session.Session.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/render"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
)

// CookieName identifies the browser's view.
const CookieName = "unstructiq_session"

// Views are bounded in number and dropped after sitting idle.
const (
	DefaultMaxViews = 256
	DefaultViewTTL  = 30 * time.Minute
)

// selectMemoryLimit guards server memory when reading a selected file. The
// upload size limit itself is enforced by the session at upload time.
const selectMemoryLimit int64 = 1 << 30

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Backend session.Backend
	// Session is copied into every new view; Logger and OnStage are replaced.
	Session  session.Options
	Renderer *charts.Renderer
	Logger   logrus.FieldLogger
	// MaxViews caps the live views; the least recently used one is evicted.
	MaxViews int
	// ViewTTL evicts views idle for longer than this.
	ViewTTL time.Duration
}

// Server is an http.Handler. Views live in memory until they sit idle for
// ViewTTL or are pushed out by newer ones.
type Server struct {
	router    *gin.Engine
	cfg       Config
	log       logrus.FieldLogger
	templates *template.Template
	now       func() time.Time

	mu    sync.Mutex
	views map[string]*view
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("web: backend is required")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = charts.NewRenderer(0, 0)
	}
	if cfg.MaxViews <= 0 {
		cfg.MaxViews = DefaultMaxViews
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = DefaultViewTTL
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	funcMap := render.FuncMap()
	funcMap["phase"] = func(p session.Phase) string { return p.String() }
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		router:    gin.New(),
		cfg:       cfg,
		log:       log,
		templates: tmpl,
		now:       time.Now,
		views:     make(map[string]*view),
	}
	s.router.Use(gin.Recovery(), requestLogger(log), s.withView)
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.POST("/select", s.handleSelect)
	s.router.POST("/prompt", s.handlePrompt)
	s.router.POST("/remove", s.handleRemove)
	s.router.POST("/upload", s.handleUpload)
	s.router.POST("/process", s.handleProcess)
	s.router.POST("/dismiss", s.handleDismiss)
	s.router.POST("/health", s.handleHealth)
	s.router.GET("/export/:format", s.handleExport)
	s.router.GET("/stage", s.handleStage)
	s.router.GET("/charts/:index", s.handleChart)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// releases every view's charts.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("serving")

	sweep := time.NewTicker(s.cfg.ViewTTL / 2)
	defer sweep.Stop()
loop:
	for {
		select {
		case err := <-errCh:
			s.Close()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sweep.C:
			s.sweep()
		case <-ctx.Done():
			break loop
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close releases every view.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.views {
		v.release()
		delete(s.views, id)
	}
}

// ViewCount reports the number of live views.
func (s *Server) ViewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// withView attaches the browser's view. A view and its cookie are created only
// by the page itself or a form action; other requests without a known cookie
// get a throwaway idle view.
func (s *Server) withView(c *gin.Context) {
	id, err := c.Cookie(CookieName)
	now := s.now()
	s.mu.Lock()
	v, ok := s.views[id]
	switch {
	case err == nil && ok:
		v.lastSeen = now
	case c.Request.Method == http.MethodPost || c.FullPath() == "/":
		s.evictLocked(now, s.cfg.MaxViews-1)
		id = uuid.NewString()
		v = s.newView(id)
		v.lastSeen = now
		s.views[id] = v
		c.SetCookie(CookieName, id, 0, "/", "", false, true)
	default:
		v = s.newView("")
	}
	s.mu.Unlock()
	c.Set("view", v)
	c.Next()
}

func (s *Server) newView(id string) *view {
	opts := s.cfg.Session
	if id != "" {
		opts.Logger = s.log.WithField("view", id[:8])
	} else {
		opts.Logger = s.log
	}
	opts.OnStage = nil
	return &view{sess: session.New(s.cfg.Backend, opts), renderer: s.cfg.Renderer}
}

func (s *Server) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now(), s.cfg.MaxViews)
}

// evictLocked drops views idle past ViewTTL, then the least recently used
// ones until at most keep remain.
func (s *Server) evictLocked(now time.Time, keep int) {
	for id, v := range s.views {
		if now.Sub(v.lastSeen) > s.cfg.ViewTTL {
			s.dropLocked(id, v)
		}
	}
	for len(s.views) > keep && len(s.views) > 0 {
		var oldest string
		for id, v := range s.views {
			if oldest == "" || v.lastSeen.Before(s.views[oldest].lastSeen) {
				oldest = id
			}
		}
		s.dropLocked(oldest, s.views[oldest])
	}
}

func (s *Server) dropLocked(id string, v *view) {
	delete(s.views, id)
	v.release()
	s.log.WithField("view", id[:8]).Debug("view evicted")
}

func viewOf(c *gin.Context) *view {
	return c.MustGet("view").(*view)
}

// requestLogger logs each request through logrus instead of gin's writer.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
