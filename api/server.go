// Package api exposes the explorer views over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
	"airbnb-explorer/services"
	"airbnb-explorer/utils"
	"airbnb-explorer/validation"
)

// Server routes HTTP requests to an Explorer.
type Server struct {
	explorer *services.Explorer
	origins  []string
	logger   *utils.Logger
}

// NewServer creates a Server. origins lists the CORS origins allowed to read
// the API; nil allows none.
func NewServer(explorer *services.Explorer, origins []string, logger *utils.Logger) *Server {
	return &Server{explorer: explorer, origins: origins, logger: logger.Named("api")}
}

// TableResponse is the JSON shape of a table of listings.
type TableResponse struct {
	Count int              `json:"count"`
	Rows  []models.Listing `json:"rows"`
}

type errorResponse struct {
	Error   apperrors.Kind `json:"error"`
	Message string         `json:"message"`
	Code    int            `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger.Zap()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/source", s.source)
		r.Post("/reload", s.reload)
		r.Get("/listings", s.listings)
		r.Get("/neighbourhood-groups", s.neighbourhoodGroups)

		r.Route("/views", func(r chi.Router) {
			r.Get("/expensive-locations", s.expensiveLocations)
			r.Get("/most-expensive", s.mostExpensive)
			r.Get("/room-types", s.roomTypes)
			r.Get("/top-hosts", s.topHosts)
			r.Get("/price-bounds", s.priceBounds)
			r.Get("/prices", s.prices)
			r.Get("/availability", s.availability)
			r.Get("/availability-by-group", s.availabilityByGroup)
			r.Get("/reviews", s.reviews)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	info, err := s.explorer.Info(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": info.Rows})
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) {
	info, err := s.explorer.Info(r.Context())
	s.respond(w, r, info, err)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.explorer.Reload(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	info, err := s.explorer.Info(r.Context())
	s.respond(w, r, info, err)
}

func (s *Server) listings(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 5)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.explorer.Head(r.Context(), limit)
	s.respondTable(w, r, t, err)
}

func (s *Server) neighbourhoodGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.explorer.NeighbourhoodGroups(r.Context())
	s.respond(w, r, groups, err)
}

func (s *Server) expensiveLocations(w http.ResponseWriter, r *http.Request) {
	pts, err := s.explorer.ExpensiveLocations(r.Context())
	s.respond(w, r, pts, err)
}

func (s *Server) mostExpensive(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", 5)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.explorer.MostExpensive(r.Context(), n)
	s.respondTable(w, r, t, err)
}

func (s *Server) roomTypes(w http.ResponseWriter, r *http.Request) {
	groups, err := s.explorer.AveragePriceByRoomType(r.Context())
	s.respond(w, r, groups, err)
}

func (s *Server) topHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := intParam(r, "hosts", 2)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	perHost, err := intParam(r, "per_host", 2)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := s.explorer.TopHosts(r.Context(), hosts, perHost)
	s.respond(w, r, out, err)
}

func (s *Server) priceBounds(w http.ResponseWriter, r *http.Request) {
	b, err := s.explorer.PriceBounds(r.Context())
	s.respond(w, r, b, err)
}

func (s *Server) prices(w http.ResponseWriter, r *http.Request) {
	lo, err := floatParam(r, "min", 50)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hi, err := floatParam(r, "max", 300)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rng, err := validation.ValidateRange(lo, hi)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	prices, err := s.explorer.PriceDistribution(r.Context(), rng)
	s.respond(w, r, map[string]any{"range": []float64{rng.Min(), rng.Max()}, "prices": prices}, err)
}

func (s *Server) availability(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		s.respondError(w, r, apperrors.New(apperrors.KindInvalidArgument, "group is required"))
		return
	}
	include, err := boolParam(r, "include_expensive")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.explorer.Availability(r.Context(), group, include)
	s.respond(w, r, summary, err)
}

func (s *Server) availabilityByGroup(w http.ResponseWriter, r *http.Request) {
	groups, err := s.explorer.AverageAvailabilityByGroup(r.Context())
	s.respond(w, r, groups, err)
}

func (s *Server) reviews(w http.ResponseWriter, r *http.Request) {
	lo, err := intParam(r, "min", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hi, err := intParam(r, "max", 5)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rng, err := validation.ValidateCountRange(lo, hi)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.explorer.ListingsByReviews(r.Context(), rng)
	s.respondTable(w, r, t, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) respondTable(w http.ResponseWriter, r *http.Request, t *models.Table, err error) {
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rows := t.Rows()
	s.respondJSON(w, http.StatusOK, TableResponse{Count: len(rows), Rows: rows})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("[api] Failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[api] %s %s: %v", r.Method, r.URL.Path, err)
	}
	resp := errorResponse{Error: apperrors.KindOf(err), Message: err.Error(), Code: status}
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		resp.Details = ae.Details
	}
	if resp.Error == "" {
		resp.Error = "internal"
	}
	s.respondJSON(w, status, resp)
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidRange, apperrors.KindInvalidArgument:
		return http.StatusBadRequest
	case apperrors.KindEmptyInput, apperrors.KindInsufficientRows:
		return http.StatusUnprocessableEntity
	case apperrors.KindSourceUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindParse:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.KindInvalidArgument, "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.New(apperrors.KindInvalidArgument, "%s must be a number, got %q", name, raw)
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.New(apperrors.KindInvalidArgument, "%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
