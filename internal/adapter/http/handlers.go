package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

const (
	routeReport   = "report"
	routeNoScrape = "noscrape"
	routeSetPOP   = "set_pop"

	allowedMethods = "GET, HEAD"
)

// Request outcomes recorded in the requests_total metric.
const (
	outcomeOK            = "ok"
	outcomeClientError   = "client_error"
	outcomeConflict      = "conflict"
	outcomeUpstreamError = "upstream_error"
	outcomeInternalError = "internal_error"
)

func (s *Server) handleReport(route string, scrape bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := s.svc.Report(r.Context(), scrape)
		if err != nil {
			s.writeFailure(w, route, err)
			return
		}
		s.metrics.Requests.WithLabelValues(route, outcomeOK).Inc()
		writeJSON(w, http.StatusOK, report)
	})
}

func (s *Server) handleSetPop(w http.ResponseWriter, r *http.Request) {
	overrides, err := s.svc.Mutate(r.Context(), r.URL.RawQuery)
	if err != nil {
		s.writeFailure(w, routeSetPOP, err)
		return
	}
	s.metrics.Requests.WithLabelValues(routeSetPOP, outcomeOK).Inc()
	writeJSON(w, http.StatusOK, overrides)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "The page you requested could not be found", http.StatusNotFound)
}

// allowRead rejects everything but GET and HEAD.
func allowRead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", allowedMethods)
			http.Error(w, "This method is not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, route string, err error) {
	status, outcome, msg := classify(err)
	s.metrics.Requests.WithLabelValues(route, outcome).Inc()

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "status", status, "error", err)
	} else {
		s.logger.Warn("request rejected", "route", route, "status", status, "error", err)
	}

	if status == http.StatusBadRequest {
		// Directive errors describe the caller's own input.
		msg = err.Error()
	}
	http.Error(w, msg, status)
}

// classify maps an error to a status code, metric outcome, and response text.
func classify(err error) (int, string, string) {
	src, _ := domain.FailedSource(err)

	switch {
	case errors.Is(err, domain.ErrInvalidDirective):
		return http.StatusBadRequest, outcomeClientError, ""
	case errors.Is(err, domain.ErrOverrideConflict):
		return http.StatusConflict, outcomeConflict, "The override map was changed by another request; retry"
	case errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadGateway, outcomeUpstreamError, "Invalid response from " + describe(src)
	case errors.Is(err, domain.ErrUpstreamUnreachable) && src == domain.SourceOverrideStore:
		return http.StatusServiceUnavailable, outcomeUpstreamError, "The override store is unavailable"
	case errors.Is(err, domain.ErrUpstreamUnreachable), src != "":
		return http.StatusBadGateway, outcomeUpstreamError, "Could not reach " + describe(src)
	default:
		return http.StatusInternalServerError, outcomeInternalError, "Internal server error"
	}
}

func describe(src domain.Source) string {
	switch src {
	case domain.SourceCatalog:
		return "the POP catalog"
	case domain.SourceLiveStatus:
		return "the status feed"
	case domain.SourceOverrideStore:
		return "the override store"
	default:
		return "an upstream service"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
