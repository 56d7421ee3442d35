package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Problem type URIs.
const (
	problemInvalid         = "/problems/invalid-request"
	problemNotFound        = "/problems/not-found"
	problemUpstream        = "/problems/upstream-unavailable"
	problemTimeout         = "/problems/timeout"
	problemTooManyRequests = "/problems/too-many-requests"
	problemInternal        = "/problems/internal-error"
)

// problem is an RFC 7807 error body.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func badRequest(err error) *problem {
	return &problem{Type: problemInvalid, Title: "Invalid request", Status: http.StatusBadRequest, Detail: err.Error()}
}

func writeProblem(w http.ResponseWriter, r *http.Request, p *problem) {
	p.Instance = r.URL.Path
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p) //nolint:errcheck // client may have gone away
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(60))
	writeProblem(w, r, &problem{
		Type:   problemTooManyRequests,
		Title:  "Too many refreshes",
		Status: http.StatusTooManyRequests,
		Detail: "Forced refreshes are rate limited. Cached data is still served by GET /api/v1/hotspots.",
	})
}
