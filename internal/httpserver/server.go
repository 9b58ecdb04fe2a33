// internal/httpserver/server.go
//
// HTTP server wiring for the Concentration backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/sounds", static /images/* and /sounds/*.
//   - Game endpoints: POST /game/new, POST /game/select (play token), GET /game/{id}[/events].
//   - History endpoints: GET /leaderboard, GET /games/mine.
//   - Idle session sweeping.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The browser is the presentation layer: it polls a session's event journal
//     and draws reveals, resets and sounds as they appear.

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/history"
	"github.com/robalobadob/concentration/internal/store"
	"github.com/robalobadob/concentration/internal/timer"
)

// Server bundles router, live session store, sound catalog and results history.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	history *history.Store // nil when history is disabled
	catalog *audio.Catalog
	clock   timer.Clock
}

// Option customises a Server.
type Option func(*Server)

// WithHistory records finished games and enables the history endpoints.
func WithHistory(h *history.Store) Option { return func(s *Server) { s.history = h } }

// WithCatalog sets the sound catalog shared by all sessions.
func WithCatalog(c *audio.Catalog) Option { return func(s *Server) { s.catalog = c } }

// WithClock sets the time source for sessions, tokens and sweeping.
func WithClock(c timer.Clock) Option { return func(s *Server) { s.clock = c } }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, opts ...Option) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, store: st, catalog: &audio.Catalog{}, clock: timer.Real{}}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped logger
	s.r.Use(accessLog())                     // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"concentration-go","endpoints":["/health","POST /game/new","POST /game/select","GET /game/{id}","GET /game/{id}/events","/sounds","/leaderboard","/games/mine"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountGame()
	s.mountHistory()

	// Static assets from ASSET_DIR
	static := staticFiles(cfg.AssetDir)
	s.r.Handle("/images/*", static)
	s.r.Handle("/sounds/*", static)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// StartSweeper closes sessions idle for longer than SESSION_TTL, checking every interval.
// Stop the returned handle to end sweeping.
func (s *Server) StartSweeper(every time.Duration) timer.Handle {
	return s.clock.Every(every, func() {
		if n := s.store.Evict(s.clock.Now().Add(-s.cfg.SessionTTL)); n > 0 {
			log.Info().Int("evicted", n).Int("live", s.store.Len()).Msg("idle sessions closed")
		}
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog logs method, path, status and duration at debug level.
func accessLog() func(http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("req_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})
}

// staticFiles serves dir, letting the file server pick the content type.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Content-Type")
		fs.ServeHTTP(w, r)
	})
}
