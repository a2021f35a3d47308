// Package handler provides the HTTP handlers for the program statistics
// server.
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stevemurr/admit-stats/metrics"
	"github.com/stevemurr/admit-stats/record"
	"github.com/stevemurr/admit-stats/store"
)

// Programs is the part of the store the handlers need.
type Programs interface {
	Load() (record.Table, error)
	Observe(o record.Observation) (record.Record, error)
}

// Options configures the middleware stack.
type Options struct {
	CORSOrigins []string

	// RateLimitRequests per RateLimitWindow per client IP on POST /update.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	programs Programs
	log      zerolog.Logger
	opts     Options
	router   chi.Router
}

// New creates a Handler and wires up all routes.
func New(p Programs, log zerolog.Logger, opts Options) *Handler {
	h := &Handler{
		programs: p,
		log:      log.With().Str("component", "http").Logger(),
		opts:     opts,
		router:   chi.NewRouter(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// Health / status
	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	// Queries
	r.Get("/programs", h.listPrograms)
	r.Get("/universities", h.listUniversities)
	r.Get("/universities/{university}/courses", h.coursesForUniversity)
	r.Get("/courses/{course}/universities", h.programsForCourse)

	// --- Backward-compatible endpoints ---
	r.Get("/get_courses/{university}", h.coursesForUniversity)
	r.Get("/get_universities/{course}", h.programsForCourse)

	r.With(h.rateLimit()).Post("/update", h.update)
}

func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	if h.opts.RateLimitDisabled || h.opts.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(h.opts.RateLimitRequests, h.opts.RateLimitWindow)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// pathParam returns the decoded value of a route parameter.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

// table loads the current table. A load failure has already been logged by
// the store and is served as an empty table.
func (h *Handler) table() record.Table {
	t, _ := h.programs.Load()
	return t
}

// ---------- status endpoints ----------

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	t := h.table()
	if t.Len() == 0 {
		writeError(w, http.StatusNotFound, "No data available")
		return
	}
	courses := t.Courses()
	writeJSON(w, http.StatusOK, map[string]any{
		"courses":        courses,
		"default_course": courses[0],
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- queries ----------

func (h *Handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	t := h.table()
	records := t.Records
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) listUniversities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table().Universities())
}

func (h *Handler) coursesForUniversity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table().CoursesFor(pathParam(r, "university")))
}

func (h *Handler) programsForCourse(w http.ResponseWriter, r *http.Request) {
	course := pathParam(r, "course")
	records := h.table().ByCourse(course)
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "No data found for the selected course: "+course)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ---------- submissions ----------

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	obs, err := parseSubmission(w, r)
	if err != nil {
		metrics.RecordObservation(metrics.ResultInvalid)
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"detail": verr.Error(),
				"fields": verr.Fields,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.programs.Observe(obs)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "No program found for "+obs.University+" - "+obs.Course)
		return
	case errors.Is(err, record.ErrInvalidObservation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.log.Error().Err(err).
			Str("university", obs.University).
			Str("course", obs.Course).
			Msg("error updating data")
		writeError(w, http.StatusInternalServerError, "Error updating data")
		return
	}

	h.log.Info().
		Str("university", obs.University).
		Str("course", obs.Course).
		Msg("updated data")
	writeJSON(w, http.StatusOK, rec)
}
