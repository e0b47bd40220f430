package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	apimw "github.com/hamed0406/uptimewatch/internal/httpapi/middleware"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 2000
)

// Server exposes the monitor's documents read-only. It never writes: the
// batch run is the only writer of the store.
type Server struct {
	Logger         *zap.Logger
	Docs           *repo.Documents
	Keys           apimw.Keys
	AllowedOrigins []string
	RatePerMinute  int
	Burst          int
}

func NewServer(l *zap.Logger, docs *repo.Documents, keys apimw.Keys) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Docs: docs, Keys: keys}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.corsHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(s.RatePerMinute, s.Burst))
		r.Use(apimw.RequireAny(s.Keys))

		r.Get("/status", s.handleStatus)
		r.Get("/latest", s.handleLatest)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/recoveries", s.handleRecoveries)
		r.Get("/history", s.handleHistory)

		r.With(apimw.RequireAdmin(s.Keys)).Get("/state", s.handleState)
	})

	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.AllowedOrigins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key"},
		MaxAge:         300,
	})
}

// TargetStatus is one row of the status page: the last result joined with
// the target's streak and alert state.
type TargetStatus struct {
	Name       string           `json:"name"`
	URL        string           `json:"url"`
	OK         bool             `json:"ok"`
	StatusCode *int             `json:"status_code"`
	LatencyMS  int64            `json:"latency_ms"`
	Error      *string          `json:"error"`
	CheckedAt  time.Time        `json:"checked_at"`
	Streak     int              `json:"streak"`
	OpenAlert  *domain.AlertRef `json:"open_alert"`
}

type statusPage struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Up          int            `json:"up"`
	Down        int            `json:"down"`
	Targets     []TargetStatus `json:"targets"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.Docs.LoadLatest(r.Context())
	if err != nil {
		s.fail(w, "load_latest_error", err)
		return
	}
	st, err := s.Docs.LoadState(r.Context())
	if err != nil {
		s.fail(w, "load_state_error", err)
		return
	}

	page := statusPage{GeneratedAt: latest.GeneratedAt, Targets: make([]TargetStatus, 0, len(latest.Results))}
	for _, res := range latest.Results {
		ts := st.Get(res.URL)
		page.Targets = append(page.Targets, TargetStatus{
			Name:       res.Name,
			URL:        res.URL,
			OK:         res.OK,
			StatusCode: res.StatusCode,
			LatencyMS:  res.LatencyMS,
			Error:      res.Error,
			CheckedAt:  res.Timestamp,
			Streak:     ts.Streak,
			OpenAlert:  ts.OpenAlert,
		})
		if res.OK {
			page.Up++
		} else {
			page.Down++
		}
	}
	writeJSON(w, page)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	serveDoc(s, w, r, "load_latest_error", s.Docs.LoadLatest)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	serveDoc(s, w, r, "load_alerts_error", s.Docs.LoadAlerts)
}

func (s *Server) handleRecoveries(w http.ResponseWriter, r *http.Request) {
	serveDoc(s, w, r, "load_recoveries_error", s.Docs.LoadRecoveries)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	serveDoc(s, w, r, "load_state_error", s.Docs.LoadState)
}

// handleHistory returns the newest ?limit= entries, oldest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			http.Error(w, "limit must be between 1 and 2000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	doc, err := s.Docs.LoadHistory(r.Context())
	if err != nil {
		s.fail(w, "load_history_error", err)
		return
	}
	if len(doc.Events) > limit {
		doc.Events = doc.Events[len(doc.Events)-limit:]
	}
	writeJSON(w, doc)
}

func serveDoc[T any](s *Server, w http.ResponseWriter, r *http.Request, event string, load func(context.Context) (T, error)) {
	doc, err := load(r.Context())
	if err != nil {
		s.fail(w, event, err)
		return
	}
	writeJSON(w, doc)
}

func (s *Server) fail(w http.ResponseWriter, event string, err error) {
	s.Logger.Warn(event, zap.Error(err))
	http.Error(w, "document unavailable", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
