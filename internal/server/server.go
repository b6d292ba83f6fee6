package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/config"
	"github.com/wesm/flow/internal/feature"
	"github.com/wesm/flow/internal/store"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Storage   string `json:"storage"`
	Variant   string `json:"variant"`
}

// Server is the HTTP server for the REST API.
type Server struct {
	mu      sync.RWMutex
	cfg     config.Config
	store   store.Store
	engine  *analytics.Engine
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	// heartbeat is the interval between SSE keep-alive events.
	heartbeat time.Duration

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

const defaultHeartbeat = 30 * time.Second

// New creates a new Server.
func New(
	cfg config.Config, st store.Store, engine *analytics.Engine,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		engine:    engine,
		mux:       http.NewServeMux(),
		heartbeat: defaultHeartbeat,
		version: VersionInfo{
			Version: "dev",
			Storage: cfg.Storage,
			Variant: cfg.Variant,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) {
		s.version.Version = v.Version
		s.version.Commit = v.Commit
		s.version.BuildDate = v.BuildDate
	}
}

// WithHeartbeat overrides the SSE heartbeat interval. Non-positive
// values are ignored.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// capability selects one flag of the feature set.
type capability func(feature.Set) bool

var (
	capMood        capability = func(f feature.Set) bool { return f.Mood }
	capProfiles    capability = func(f feature.Set) bool { return f.Profiles }
	capSmart       capability = func(f feature.Set) bool { return f.SmartSuggestions }
	capReflections capability = func(f feature.Set) bool { return f.Reflections }
	capAchieve     capability = func(f feature.Set) bool { return f.Achievements }
)

func (s *Server) routes() {
	// Tasks
	s.mux.Handle("GET /api/tasks", s.withTimeout(s.handleListTasks))
	s.mux.Handle("POST /api/tasks", s.withTimeout(s.handleCreateTask))
	s.mux.Handle("PUT /api/tasks/{id}", s.withTimeout(s.handleUpdateTask))
	s.mux.Handle("DELETE /api/tasks/{id}", s.withTimeout(s.handleDeleteTask))
	s.mux.Handle("POST /api/tasks/reorder", s.withTimeout(s.handleReorderTasks))
	s.mux.Handle("POST /api/tasks/quick", s.withTimeout(s.handleQuickAddTask))
	s.mux.Handle("POST /api/tasks/parse", s.withTimeout(s.handleParseTask))
	s.mux.Handle("POST /api/tasks/{id}/snooze", s.withTimeout(s.handleSnoozeTask))
	s.mux.Handle("POST /api/tasks/{id}/reschedule", s.withTimeout(s.handleRescheduleTask))
	s.mux.Handle(
		"GET /api/tasks/{id}/reschedule-suggestions",
		s.withTimeout(s.handleRescheduleSuggestions),
	)
	s.mux.Handle("POST /api/tasks/{id}/breakdown", s.withTimeout(s.handleBreakdownTask))
	s.mux.Handle(
		"GET /api/tasks/{id}/breakdown-suggestions",
		s.withTimeout(s.handleBreakdownSuggestions),
	)
	s.mux.Handle("GET /api/tasks/aging", s.withTimeout(s.handleAgingTasks))
	s.mux.Handle("POST /api/tasks/prioritize", s.withTimeout(s.handlePrioritizeTasks))

	// Habits
	s.mux.Handle("GET /api/habits", s.withTimeout(s.handleListHabits))
	s.mux.Handle("POST /api/habits", s.withTimeout(s.handleCreateHabit))
	s.mux.Handle("DELETE /api/habits/{id}", s.withTimeout(s.handleDeleteHabit))
	s.mux.Handle("POST /api/habits/{id}/complete", s.withTimeout(s.handleCompleteHabit))
	s.mux.Handle("POST /api/habits/{id}/uncomplete", s.withTimeout(s.handleUncompleteHabit))
	s.mux.Handle("GET /api/habits/{id}/insights", s.withTimeout(s.handleHabitInsights))
	s.mux.Handle(
		"GET /api/habits/{id}/strength",
		s.requires(capSmart, "smart_suggestions", s.handleHabitStrength),
	)

	// Focus
	s.mux.Handle("GET /api/focus", s.withTimeout(s.handleGetFocus))
	s.mux.Handle("POST /api/focus", s.withTimeout(s.handleSetFocus))
	s.mux.Handle("POST /api/focus/{id}/complete", s.withTimeout(s.handleCompleteFocus))

	// Aggregates and generators
	s.mux.Handle("GET /api/stats", s.withTimeout(s.handleStats))
	s.mux.Handle("GET /api/weekly-review", s.withTimeout(s.handleWeeklyReview))
	s.mux.Handle(
		"GET /api/analytics/productivity",
		s.requires(capSmart, "smart_suggestions", s.handleProductivity),
	)
	s.mux.Handle("GET /api/praise", s.withTimeout(s.handlePraise))
	s.mux.Handle("GET /api/insights", s.withTimeout(s.handleInsights))
	s.mux.Handle(
		"GET /api/smart-suggestions",
		s.requires(capSmart, "smart_suggestions", s.handleSmartSuggestions),
	)
	s.mux.Handle(
		"POST /api/suggestions/{id}/apply",
		s.requires(capSmart, "smart_suggestions", s.handleApplySuggestion),
	)
	s.mux.Handle("GET /api/calendar/{view}", s.withTimeout(s.handleCalendar))
	s.mux.Handle(
		"GET /api/achievements",
		s.requires(capAchieve, "achievements", s.handleAchievements),
	)

	// Journal
	s.mux.Handle(
		"GET /api/reflection",
		s.requires(capReflections, "reflections", s.handleGetReflections),
	)
	s.mux.Handle(
		"POST /api/reflection",
		s.requires(capReflections, "reflections", s.handleSaveReflection),
	)
	s.mux.Handle("GET /api/mood", s.requires(capMood, "mood", s.handleGetMood))
	s.mux.Handle("POST /api/mood", s.requires(capMood, "mood", s.handleSaveMood))
	s.mux.Handle("GET /api/mood/patterns", s.requires(capMood, "mood", s.handleMoodPatterns))

	// Profile, settings and onboarding
	s.mux.Handle("GET /api/profile", s.requires(capProfiles, "profiles", s.handleGetProfile))
	s.mux.Handle("PUT /api/profile", s.requires(capProfiles, "profiles", s.handleUpdateProfile))
	s.mux.Handle("GET /api/settings", s.withTimeout(s.handleGetSettings))
	s.mux.Handle("PUT /api/settings", s.withTimeout(s.handleUpdateSettings))
	s.mux.Handle("GET /api/onboarding", s.withTimeout(s.handleGetOnboarding))
	s.mux.Handle("POST /api/onboarding/complete", s.withTimeout(s.handleCompleteOnboarding))

	// Backup and restore. Export does not use the timeout
	// handler to avoid buffering the download.
	s.mux.Handle("GET /api/export", http.HandlerFunc(s.handleExport))
	s.mux.Handle("GET /api/export/tasks.csv", http.HandlerFunc(s.handleExportTasksCSV))
	s.mux.Handle("POST /api/import", s.withTimeout(s.handleImport))

	// SSE: Do not use timeout, as this is a long-lived connection.
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	s.mux.Handle("GET /api/version", s.withTimeout(s.handleGetVersion))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set(
				"Access-Control-Allow-Origin", "*",
			)
			w.Header().Set(
				"Access-Control-Allow-Methods",
				"GET, POST, PUT, DELETE, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type",
			)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}
