package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"venueq/internal/config"
	"venueq/internal/database"
	"venueq/internal/domain"
	"venueq/internal/export"
	"venueq/internal/metrics"
	"venueq/internal/models"
	"venueq/internal/service"
)

// HTTPServer exposes the inquiry queue and booking calendar over HTTP.
type HTTPServer struct {
	cfg       config.APIConfig
	store     domain.Store
	inquiries *service.InquiryService
	admission *service.AdmissionService
	bookings  *service.BookingService
	exporter  *export.ScheduleExporter
	auth      *HTTPAuth
	server    *http.Server
	logger    zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	store domain.Store,
	inquiries *service.InquiryService,
	admission *service.AdmissionService,
	bookings *service.BookingService,
	exporter *export.ScheduleExporter,
	limits domain.RateCounter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		store:     store,
		inquiries: inquiries,
		admission: admission,
		bookings:  bookings,
		exporter:  exporter,
		auth:      NewHTTPAuth(cfg, limits),
		logger:    logger.With().Str("component", "http_server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/api/v1/inquiries", srv.handleInquiries)
	mux.HandleFunc("/api/v1/inquiries/", srv.handleInquiryByID)
	mux.HandleFunc("/api/v1/vendors/", srv.handleVendors)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/venues", srv.handleVenues)
	mux.HandleFunc("/api/v1/venues/", srv.handleVenueAvailability)
	mux.HandleFunc("/api/v1/exports/schedule", srv.handleExportSchedule)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/v1/inquiries
func (s *HTTPServer) handleInquiries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var inquiry models.Inquiry
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&inquiry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.inquiries.Submit(r.Context(), &inquiry); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &inquiry)
}

// GET /api/v1/inquiries/{id}
// POST /api/v1/inquiries/{id}/status
// DELETE /api/v1/inquiries/{id}
func (s *HTTPServer) handleInquiryByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/inquiries/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid inquiry id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getInquiry(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.inquiries.Remove(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		s.advanceInquiry(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) getInquiry(w http.ResponseWriter, r *http.Request, id int64) {
	inquiry, err := s.store.GetInquiry(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inquiry)
}

func (s *HTTPServer) advanceInquiry(w http.ResponseWriter, r *http.Request, id int64) {
	type request struct {
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if body.Status == models.StatusConfirmed {
		// Confirmation goes through the vendor's confirm-oldest endpoint,
		// never through a direct status write.
		writeError(w, http.StatusUnprocessableEntity, "confirmation is queue-driven; use confirm-oldest")
		return
	}

	updated, err := s.inquiries.Advance(r.Context(), id, body.Version, body.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// POST /api/v1/vendors/{id}/inquiries/confirm-oldest
// GET  /api/v1/vendors/{id}/inquiries?sort=&dir=
func (s *HTTPServer) handleVendors(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/vendors/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	vendorID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || vendorID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}

	if !s.vendorAllowed(r, vendorID) {
		writeError(w, http.StatusForbidden, "key is not bound to this vendor")
		return
	}

	switch {
	case len(parts) == 3 && parts[1] == "inquiries" && parts[2] == "confirm-oldest" && r.Method == http.MethodPost:
		result, err := s.admission.ConfirmOldest(r.Context(), vendorID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case len(parts) == 2 && parts[1] == "inquiries" && r.Method == http.MethodGet:
		sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))
		dir := strings.TrimSpace(r.URL.Query().Get("dir"))
		inquiries, err := s.inquiries.List(r.Context(), vendorID, sortKey, dir)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inquiries": inquiries})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// vendorAllowed enforces the key's vendor binding. Keys with VendorID 0
// (admin and submission keys) pass for any vendor when auth is enabled;
// with auth disabled everything passes.
func (s *HTTPServer) vendorAllowed(r *http.Request, vendorID int64) bool {
	if !s.cfg.Auth.Enabled {
		return true
	}
	client, ok := s.auth.ClientFor(r)
	if !ok {
		return false
	}
	return client.VendorID == 0 || client.VendorID == vendorID
}

// POST /api/v1/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var booking models.Booking
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&booking); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.bookings.CreateDirect(r.Context(), &booking); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &booking)
}

// GET /api/v1/bookings/{id}
// DELETE /api/v1/bookings/{id}
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/"), "/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.store.GetBooking(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodDelete:
		if err := s.bookings.Cancel(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/v1/venues
func (s *HTTPServer) handleVenues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": s.store.GetVenues()})
}

// GET /api/v1/venues/{name}/availability?date=&hours=
func (s *HTTPServer) handleVenueAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/venues/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "availability" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	venueName := strings.TrimSpace(parts[0])
	if venueName == "" {
		writeError(w, http.StatusBadRequest, "venue name is required")
		return
	}

	start, err := parseWindowStart(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hours := 1.0
	if raw := strings.TrimSpace(r.URL.Query().Get("hours")); raw != "" {
		hours, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
	}

	available, err := s.bookings.CheckAvailability(r.Context(), venueName, start, hours)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"venue":     venueName,
		"start":     start,
		"hours":     hours,
		"available": available,
	})
}

func parseWindowStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format; expected RFC3339 or YYYY-MM-DD")
}

// GET /api/v1/exports/schedule?start=&end=
func (s *HTTPServer) handleExportSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	start, err := parseWindowStart(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := parseWindowStart(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}

	filePath, err := s.exporter.Export(r.Context(), start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("export error")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export file unavailable")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	http.ServeContent(w, r, filepath.Base(filePath), time.Now(), f)
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": vErr.Fields,
		})
	case errors.Is(err, database.ErrVenueNotFound), errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrBookingConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrPastDate), errors.Is(err, service.ErrDateTooFar), errors.Is(err, service.ErrVendorMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
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
