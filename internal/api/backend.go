package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Backend is one protocol generation. The server picks one in New and
// never branches on the generation again.
type Backend interface {
	// Generation is config.GenerationClipV2 or config.GenerationLegacy.
	Generation() string

	// SmallConfig is the document served at /api/config.
	SmallConfig() map[string]any

	// FullConfig is the document served at /api/{user}/config.
	FullConfig() map[string]any

	// Routes registers the generation's protocol and develop routes.
	Routes(r chi.Router)
}

// stateRequest is the body of PUT /develop/groupconfig/{id}/state.
type stateRequest struct {
	Active *bool   `json:"active"`
	Owner  *string `json:"owner"`
}

// owner returns the requested owner, or fallback when none was named.
func (req stateRequest) owner(fallback string) string {
	if req.Owner == nil || *req.Owner == "" {
		return fallback
	}
	return *req.Owner
}

// lightRequest is the body of PUT /develop/groupconfig/{id}/light.
type lightRequest struct {
	Location []float64 `json:"location"`
}

// position validates the location and returns x and y. A third coordinate
// is accepted and ignored.
func (req lightRequest) position() (x, y float64, err error) {
	if len(req.Location) < 2 {
		return 0, 0, fmt.Errorf("location must be [x, y]")
	}
	return req.Location[0], req.Location[1], nil
}

// decodeBody decodes the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
