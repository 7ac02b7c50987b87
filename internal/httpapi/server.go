package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tstated/internal/thermal"
	"tstated/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	CPUs() []types.CPUStatus
	Transition(mode string) error
	Ready() bool
}

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	// Status reads the daemon-wide view.
	//
	// @Summary  Daemon status
	// @Produce  json
	// @Success  200 {object} types.StatusResponse
	// @Router   /v1/status [get]
	r.Get("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// CPUs lists every possible CPU with its online flag and slot state.
	//
	// @Summary  Per-CPU compensation slots
	// @Produce  json
	// @Success  200 {object} types.CPUsResponse
	// @Router   /v1/cpus [get]
	r.Get("/v1/cpus", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.CPUsResponse{CPUs: svc.CPUs()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Transitions is the entry point for the platform's suspend
	// orchestration (systemd-sleep hook). The handler returns only after the
	// bus has drained and the thermal step has run.
	//
	// @Summary  Notify a power transition
	// @Accept   json
	// @Produce  json
	// @Param    transition body types.TransitionRequest true "transition mode"
	// @Success  202 {object} types.TransitionResponse
	// @Failure  400 {object} types.ErrorResponse
	// @Router   /v1/transitions [post]
	r.Post("/v1/transitions", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Mode) == "" {
			writeJSONError(w, http.StatusBadRequest, "mode is required")
			return
		}
		start := time.Now()
		if err := svc.Transition(req.Mode); err != nil {
			if thermal.IsUnknownMode(err) {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				logTransition(r, req.Mode, http.StatusBadRequest, time.Since(start), err)
				return
			}
			if he, ok := err.(HTTPError); ok {
				writeJSONError(w, he.StatusCode(), he.Error())
				logTransition(r, req.Mode, he.StatusCode(), time.Since(start), err)
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			logTransition(r, req.Mode, http.StatusInternalServerError, time.Since(start), err)
			return
		}
		ev, _ := thermal.EventFor(thermal.Mode(req.Mode))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.TransitionResponse{Mode: req.Mode, Event: ev.String()})
		logTransition(r, req.Mode, http.StatusAccepted, time.Since(start), nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
