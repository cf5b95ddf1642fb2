package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shamshouse/internal/config"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	healthPath       = "/healthz"
	readyPath        = "/readyz"
	metricsPath      = "/metrics"
	quotePath        = "/api/v1/quote"
	availabilityPath = "/api/v1/availability"

	maxBodyBytes = 1 << 16
)

// HTTPServer exposes the quote API over JSON alongside the gRPC service.
type HTTPServer struct {
	cfg    *config.APIConfig
	quotes Quoter
	redis  *redis.Client
	server *http.Server
	log    zerolog.Logger
}

// NewHTTPServer wires the routes. redisClient may be nil, in which case
// readiness does not depend on it.
func NewHTTPServer(cfg *config.APIConfig, quotes Quoter, redisClient *redis.Client, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, quotes: quotes, redis: redisClient, log: zerolog.Nop()}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, srv.handleHealth)
	mux.HandleFunc(readyPath, srv.handleReady)
	mux.Handle(metricsPath, metrics.Handler())
	mux.HandleFunc(quotePath, srv.handleQuote)
	mux.HandleFunc(availabilityPath, srv.handleAvailability)

	handler := srv.loggingMiddleware(corsMiddleware(NewHTTPAuth(cfg).Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness: redis ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "redis unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body quoteRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req, err := body.toService()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.quotes.Quote(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	metrics.ObserveQuote(res.Total)
	writeJSON(w, http.StatusOK, quoteResponse{Nights: res.Nights, Total: res.Total, Formatted: res.Formatted})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	checkIn, err := parseDateField("checkIn", q.Get("checkIn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDateField("checkOut", q.Get("checkOut"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roomType, err := parseRoomType(q.Get("roomType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rooms, err := s.quotes.Availability(r.Context(), checkIn, checkOut, roomType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkIn":  checkIn,
		"checkOut": checkOut,
		"rooms":    toAvailableRooms(rooms),
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hostelapi.ErrNotFound):
		writeError(w, http.StatusNotFound, hostelapi.MessageOr(err, "not found"))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("hostel backend call failed")
		writeError(w, http.StatusBadGateway, "hostel backend unavailable")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFromHeader(r.Header.Get(requestIDKey))
		w.Header().Set(requestIDKey, requestID)
		reqLogger := s.log.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(routeLabel(r.URL.Path), strconv.Itoa(recorder.status))
		reqLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// routeLabel keeps the metric's endpoint label bounded.
func routeLabel(path string) string {
	switch path {
	case healthPath, readyPath, metricsPath, quotePath, availabilityPath:
		return path
	default:
		return "other"
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key, X-Api-Extra, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
