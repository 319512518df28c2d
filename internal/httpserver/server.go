package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vectorads/spendmetrics/internal/config"
	"github.com/vectorads/spendmetrics/internal/ingest"
	"github.com/vectorads/spendmetrics/internal/intent"
	"github.com/vectorads/spendmetrics/internal/kpi"
	"github.com/vectorads/spendmetrics/internal/metrics"
	"github.com/vectorads/spendmetrics/internal/middleware"
	"github.com/vectorads/spendmetrics/internal/models"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	KPI     *kpi.Service
	Intent  *intent.Mapper
	Ingest  *ingest.Job
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps the HTTP handlers for the KPI API.
type Server struct {
	kpiService *kpi.Service
	intents    *intent.Mapper
	ingestJob  *ingest.Job
	logger     *zap.Logger
	config     *config.Config
	metrics    *metrics.Metrics
}

// NewServer constructs an http.Handler with all routes and middleware.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		kpiService: deps.KPI,
		intents:    deps.Intent,
		ingestJob:  deps.Ingest,
		logger:     deps.Logger,
		config:     deps.Config,
		metrics:    deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// KPI queries
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/compare-30d", s.handleCompare30d)

	// Manual ingest trigger
	mux.HandleFunc("/ingest/run", s.handleIngestRun)

	// Natural-language entry point
	if deps.Config.Intent.Enabled {
		mux.HandleFunc("/ask", s.handleAsk)
	}

	rateLimit := middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
	rateLimit.SetMetrics(deps.Metrics)
	auth := middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger)
	recovery := middleware.NewRecoveryMiddleware(deps.Logger)
	logging := middleware.NewLoggingMiddleware(deps.Logger)

	var handler http.Handler = mux
	handler = rateLimit.Handler(handler)
	handler = auth.Handler(handler)
	handler = recovery.Handler(handler)
	handler = logging.Handler(handler)

	return handler
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- KPI Queries ----

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start, end, ok := s.parseRange(w, r)
	if !ok {
		return
	}

	s.serveWindowedMetrics(w, r, start, end)
}

func (s *Server) handleCompare30d(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.serveCompare30d(w, r)
}

// ---- Ingest Trigger ----

func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.ingestJob == nil {
		s.errorResponse(w, "ingestion not configured", http.StatusServiceUnavailable)
		return
	}

	summary, err := s.ingestJob.Run(r.Context())
	if err != nil {
		s.logger.Error("manual ingest run failed", zap.Error(err))
		s.errorResponse(w, "ingest run failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	s.jsonResponse(w, summary)
}

// ---- Natural-Language Questions ----

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	question := r.URL.Query().Get("q")
	if question == "" {
		s.errorResponse(w, "q parameter required", http.StatusBadRequest)
		return
	}

	q := s.intents.Map(question)
	if s.metrics != nil {
		s.metrics.RecordIntent(string(q.Kind))
	}

	switch q.Kind {
	case intent.KindCompare:
		s.serveCompare30d(w, r)
	case intent.KindWindow:
		s.serveWindowedMetrics(w, r, q.Start, q.End)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":    "could not understand question",
			"question": question,
		})
	}
}

// ---- Shared query plumbing ----

func (s *Server) serveWindowedMetrics(w http.ResponseWriter, r *http.Request, start, end time.Time) {
	result, err := s.kpiService.WindowedMetrics(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, kpi.ErrInvalidRange) {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("windowed metrics query failed", zap.Error(err))
		s.errorResponse(w, "failed to compute metrics", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, result)
}

func (s *Server) serveCompare30d(w http.ResponseWriter, r *http.Request) {
	result, err := s.kpiService.Compare30d(r.Context())
	if err != nil {
		s.logger.Error("compare-30d query failed", zap.Error(err))
		s.errorResponse(w, "failed to compute comparison", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, result)
}

// parseRange reads the required start/end query parameters. On failure it
// writes a 400 response and returns ok=false.
func (s *Server) parseRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		s.errorResponse(w, "start and end parameters are required", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(models.DateFormat, startStr)
	if err != nil {
		s.errorResponse(w, "invalid start date; use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err = time.Parse(models.DateFormat, endStr)
	if err != nil {
		s.errorResponse(w, "invalid end date; use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if start.After(end) {
		s.errorResponse(w, "start must be before or equal to end", http.StatusBadRequest)
		return
	}

	return start, end, true
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
