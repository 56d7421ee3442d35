package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/pipeline"
)

// handleView serves cached data only. Forced refreshes go through the
// rate-limited POST /api/v1/hotspots/refresh.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	days, err := optionalInt(r, "days")
	if err != nil {
		writeProblem(w, r, badRequest(err))
		return
	}

	v, err := s.svc.View(r.Context(), pipeline.ViewRequest{Days: days})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	days, err := optionalInt(r, "days")
	if err != nil {
		writeProblem(w, r, badRequest(err))
		return
	}

	v, err := s.svc.View(r.Context(), pipeline.ViewRequest{Days: days, ForceRefresh: true})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("forced refresh", "days", v.Query.Days, "records", len(v.Markers), "fetch_count", v.FetchCount)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	lat, err := requiredFloat(r, "lat")
	if err != nil {
		writeProblem(w, r, badRequest(err))
		return
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		writeProblem(w, r, badRequest(err))
		return
	}
	days, err := optionalInt(r, "days")
	if err != nil {
		writeProblem(w, r, badRequest(err))
		return
	}

	d, ok, err := s.svc.Select(r.Context(), pipeline.SelectRequest{Days: days, Lat: lat, Lon: lon})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeProblem(w, r, &problem{
			Type:   problemNotFound,
			Title:  "No hotspot at this position",
			Status: http.StatusNotFound,
			Detail: fmt.Sprintf("no hotspot within 5 decimals of %v,%v", lat, lon),
		})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// writeError maps service errors onto problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var upErr *domain.UpstreamError
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		writeProblem(w, r, badRequest(err))
	case errors.As(err, &upErr):
		writeProblem(w, r, &problem{
			Type:   problemUpstream,
			Title:  "FIRMS provider unavailable",
			Status: http.StatusBadGateway,
			Detail: upErr.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, r, &problem{Type: problemTimeout, Title: "Request timed out", Status: http.StatusGatewayTimeout})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger.Error("unhandled request error", "path", r.URL.Path, "error", err)
		writeProblem(w, r, &problem{Type: problemInternal, Title: "Internal error", Status: http.StatusInternalServerError})
	}
}

func optionalInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, s)
	}
	return n, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, s)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
