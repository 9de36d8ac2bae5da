package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/treefix50/showroom/internal/auth"
	"github.com/treefix50/showroom/internal/catalog"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 3 * time.Second
)

// Collection is the ordered, filterable set of shows behind the list pages.
type Collection interface {
	Shows(f catalog.Filter) []catalog.Summary
	Genres() []catalog.GenreCount
	LastScan() time.Time
}

// Details looks up the full model of a single show.
type Details interface {
	Lookup(id int64) (*catalog.Show, bool)
}

type ScanRuns interface {
	ListScanRuns(limit int) ([]catalog.ScanRun, error)
}

type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// ScanInterval enables periodic rescans when greater than zero.
	ScanInterval time.Duration
	// ScanMinInterval is the per-client spacing enforced on /admin/scan.
	ScanMinInterval time.Duration
	CORS            bool
}

// Deps are the collaborators the handlers read from. Scanner and ScanRuns
// may be nil, which disables the endpoints that need them.
type Deps struct {
	Collection  Collection
	Details     Details
	Scanner     catalog.Scanner
	ScanRuns    ScanRuns
	Credentials auth.Credentials
	Logger      *zap.Logger
}

type Server struct {
	opts        Options
	collection  Collection
	details     Details
	scanner     catalog.Scanner
	scanRuns    ScanRuns
	credentials auth.Credentials
	logger      *zap.Logger
	pages       *pages
	limiter     *RateLimiter
	http        *http.Server
	handler     http.Handler
	scanTicker  *time.Ticker
	scanCancel  context.CancelFunc
	scanDone    chan struct{}
}

func New(opts Options, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:        opts,
		collection:  deps.Collection,
		details:     deps.Details,
		scanner:     deps.Scanner,
		scanRuns:    deps.ScanRuns,
		credentials: deps.Credentials,
		logger:      deps.Logger,
		pages:       p,
		limiter:     NewRateLimiter(opts.ScanMinInterval),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /shows", s.handleShows)
	mux.HandleFunc("GET /shows/{id}", s.handleShowDetail)
	mux.HandleFunc("GET /shows/{id}/poster", s.handlePoster)
	mux.HandleFunc("GET /tags", s.handleTags)
	mux.HandleFunc("GET /tags/{genre}", s.handleTag)
	mux.HandleFunc("GET /actors/{id}", s.handleActor)
	mux.HandleFunc("GET /api/shows", s.handleAPIShows)
	mux.HandleFunc("GET /api/shows/{id}", s.handleAPIShow)
	mux.HandleFunc("GET /api/scans", s.handleAPIScans)
	mux.HandleFunc("POST /admin/scan", s.handleAdminScan)
	mux.HandleFunc("/", s.handleNotFound)

	s.handler = logMiddleware(mux, s.logger, opts.CORS)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}

	if opts.ScanInterval > 0 && s.scanner != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.scanTicker = time.NewTicker(opts.ScanInterval)
		s.scanCancel = cancel
		s.scanDone = make(chan struct{})
		go s.runScanTicker(ctx)
	}
	return s, nil
}

// Handler exposes the routed handler, including the access log middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// Start blocks serving HTTP until Close is called. A closed server is not
// reported as an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.opts.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Close() error {
	s.stopScanTicker()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// runScanTicker rescans on every tick until ctx is cancelled, which also
// aborts a scan in flight.
func (s *Server) runScanTicker(ctx context.Context) {
	defer close(s.scanDone)
	defer s.scanTicker.Stop()
	for {
		select {
		case <-s.scanTicker.C:
			if _, err := s.scanner.Scan(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("periodic scan failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) stopScanTicker() {
	if s.scanCancel == nil {
		return
	}
	s.scanCancel()
	<-s.scanDone
	s.scanCancel = nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/shows", http.StatusFound)
}
