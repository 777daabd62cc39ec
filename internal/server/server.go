package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentinelapp/sentinel/internal/blob"
	"github.com/sentinelapp/sentinel/internal/extract"
	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/handler"
	"github.com/sentinelapp/sentinel/internal/ingest"
	"github.com/sentinelapp/sentinel/internal/middleware"
	"github.com/sentinelapp/sentinel/internal/store"
	"github.com/sentinelapp/sentinel/internal/sync"
	ws "github.com/sentinelapp/sentinel/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	OpenAIKey          string
	GoogleClientID     string
	GoogleClientSecret string
	Timezone           *time.Location
	Blob               blob.Config
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	syllabusH    *handler.SyllabusHandler
	courseH      *handler.CourseHandler
	eventH       *handler.EventHandler
	calendarH    *handler.CalendarHandler
	accountH     *handler.AccountHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	courseStore := store.NewCourseStore(db)
	eventStore := store.NewEventStore(db)

	extractor := extract.NewClient(cfg.OpenAIKey, logger.With("component", "extract"))
	blobStore := blob.NewStore(cfg.Blob)
	ingestSvc := ingest.NewService(extractor, blobStore, courseStore, eventStore, hub,
		logger.With("component", "ingest"))

	calClient := gcal.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret)
	engine := sync.NewEngine(calClient, courseStore, eventStore, cfg.Timezone, hub,
		logger.With("component", "sync"))

	return &Server{
		db:           db,
		hub:          hub,
		syllabusH:    handler.NewSyllabusHandler(ingestSvc),
		courseH:      handler.NewCourseHandler(courseStore, userStore, engine, logger.With("component", "course")),
		eventH:       handler.NewEventHandler(eventStore, userStore, engine),
		calendarH:    handler.NewCalendarHandler(engine, userStore),
		accountH:     handler.NewAccountHandler(userStore, engine),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else requires a session token.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireUser(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Uploads trigger paid extraction calls, so they are rate limited per
	// client IP on top of auth.
	mux.HandleFunc("POST /api/syllabi/upload", s.rateLimitedHandler(s.syllabusH.Upload))

	mux.HandleFunc("GET /api/courses", s.courseH.List)
	mux.HandleFunc("GET /api/courses/{id}", s.courseH.Get)
	mux.HandleFunc("PATCH /api/courses/{id}", s.courseH.Update)
	mux.HandleFunc("DELETE /api/courses/{id}", s.courseH.Delete)

	mux.HandleFunc("POST /api/courses/{id}/calendar", s.calendarH.Bind)
	mux.HandleFunc("DELETE /api/courses/{id}/calendar", s.calendarH.Unbind)
	mux.HandleFunc("POST /api/courses/{id}/calendar/sync", s.calendarH.Sync)
	mux.HandleFunc("DELETE /api/courses/{id}/calendar/sync", s.calendarH.Retract)

	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("PATCH /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	mux.HandleFunc("POST /api/auth/google/disconnect", s.accountH.DisconnectGoogle)

	mux.HandleFunc("GET /ws", ws.Handler(s.hub))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
