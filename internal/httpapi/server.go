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

	"github.com/hamed0406/slotwatch/internal/domain"
	apimw "github.com/hamed0406/slotwatch/internal/httpapi/middleware"
	"github.com/hamed0406/slotwatch/internal/repo"
	"github.com/hamed0406/slotwatch/internal/scheduler"
)

// Monitor is the part of *scheduler.Monitor the API needs.
type Monitor interface {
	Status() scheduler.Status
	RunOnce(ctx context.Context) scheduler.CycleReport
}

type Server struct {
	Logger       *zap.Logger
	Monitor      Monitor
	Alerts       repo.AlertLog // optional
	Metrics      http.Handler  // optional, served on /metrics
	CheckTimeout time.Duration
}

func NewServer(l *zap.Logger, m Monitor, alerts repo.AlertLog, metrics http.Handler) *Server {
	return &Server{Logger: l, Monitor: m, Alerts: alerts, Metrics: metrics, CheckTimeout: 2 * time.Minute}
}

// Router wires the API. origins nil means any origin.
func (s *Server) Router(keys apimw.Keys, origins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsHandler(origins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/status", s.handleStatus)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/alerts", s.handleAlerts)

		r.With(apimw.RequireAdmin(keys)).Post("/check", s.handleCheck)
	})
	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Monitor.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": st.Initialized,
		"cycles":      st.Cycles,
		"locations":   st.Snapshot.Len(),
		"last":        st.Last,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	st := s.Monitor.Status()
	if !st.Initialized {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no baseline yet"})
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.Alerts == nil {
		writeJSON(w, http.StatusOK, []domain.AlertRecord{})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1..500"})
			return
		}
		limit = n
	}
	alerts, err := s.Alerts.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("api_alerts_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not read alerts"})
		return
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleCheck runs one cycle now. It waits for a cycle already in flight.
// The cycle is detached from the request so a client hanging up cannot
// cancel notification after the baseline has moved.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.CheckTimeout)
	defer cancel()

	rep := s.Monitor.RunOnce(ctx)
	s.Logger.Info("manual_check",
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.String("outcome", rep.Outcome),
	)
	status := http.StatusOK
	if rep.Outcome == scheduler.OutcomeCancelled {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
