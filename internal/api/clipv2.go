package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/ownership"
	"github.com/nerrad567/bridgesim/internal/resource"
)

// Entertainment configuration actions.
const (
	actionStart = "start"
	actionStop  = "stop"
)

// clipV2Backend serves the resource graph.
type clipV2Backend struct {
	srv   *Server
	store *resource.Store
}

// clipError is one entry of a resource-graph error list.
type clipError struct {
	Description string `json:"description"`
}

// clipResponse is the resource-graph write response.
type clipResponse struct {
	Data   []resource.Ref `json:"data,omitempty"`
	Errors []clipError    `json:"errors"`
}

type actionRequest struct {
	Action *string `json:"action"`
}

func (b *clipV2Backend) Generation() string { return config.GenerationClipV2 }

func (b *clipV2Backend) SmallConfig() map[string]any {
	cfg := b.FullConfig()
	return smallConfig(cfg, "name", "bridgeid", "modelid", "apiversion", "swversion")
}

func (b *clipV2Backend) FullConfig() map[string]any {
	cfg := b.srv.bridgeConfig()
	applyClipV2Floors(cfg)
	return cfg
}

func (b *clipV2Backend) Routes(r chi.Router) {
	r.Get("/auth/v1", b.handleAuth)
	r.Get("/eventstream/clip/v2", b.srv.handleEventStream)

	r.Get("/clip/v2/resource/{kind}", b.handleList)
	r.Get("/clip/v2/resource/{kind}/{id}", b.handleGet)
	r.Put("/clip/v2/resource/{kind}/{id}", b.handleUpdate)

	r.Put("/develop/groupconfig/{id}/state", b.handleDevelopState)
	r.Put("/develop/groupconfig/{id}/light", b.handleAddLight)
	r.Delete("/develop/groupconfig/{id}/light/{channelID}", b.handleDeleteChannel)
}

// handleAuth returns the application id used as the streaming owner.
//
// GET /auth/v1
// Response: empty, header hue-application-id
func (b *clipV2Backend) handleAuth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("hue-application-id", b.srv.bridge.ApplicationID)
	w.WriteHeader(http.StatusOK)
}

// handleList returns one resource collection.
//
// GET /clip/v2/resource/{kind}
// Response: {"errors":[],"data":[...]}
func (b *clipV2Backend) handleList(w http.ResponseWriter, r *http.Request) {
	data, err := b.store.List(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// handleGet returns one resource wrapped in a collection.
//
// GET /clip/v2/resource/{kind}/{id}
func (b *clipV2Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	data, err := b.store.Get(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// handleUpdate starts or stops streaming on an entertainment configuration.
// No other resource kind is writable.
//
// PUT /clip/v2/resource/entertainment_configuration/{id}
// Body: {"action":"start"|"stop"}
// Response: {"data":[{"rid":id,"rtype":"entertainment_configuration"}],"errors":[]}
// An ownership conflict is reported in the errors list with status 200.
func (b *clipV2Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "kind") != resource.TypeEntertainmentConfiguration {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "resource kind is read-only")
		return
	}
	id := chi.URLParam(r, "id")

	var req actionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Action == nil {
		writeBadRequest(w, "action is required")
		return
	}
	if *req.Action != actionStart && *req.Action != actionStop {
		writeBadRequest(w, "unknown action: "+*req.Action)
		return
	}

	b.setState(w, id, *req.Action == actionStart, b.srv.bridge.ApplicationID)
}

// handleDevelopState sets the stream state on behalf of any owner, so the
// GUI can simulate a foreign application holding the configuration.
//
// PUT /develop/groupconfig/{id}/state
// Body: {"active":bool,"owner":string}
func (b *clipV2Backend) handleDevelopState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeBadRequest(w, "active is required")
		return
	}
	b.setState(w, chi.URLParam(r, "id"), *req.Active, req.owner(b.srv.bridge.ApplicationID))
}

func (b *clipV2Backend) setState(w http.ResponseWriter, id string, active bool, owner string) {
	var err error
	if active {
		_, err = b.srv.arbiter.Activate(id, owner)
	} else {
		_, err = b.srv.arbiter.Deactivate(id)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, clipResponse{
			Data:   []resource.Ref{{RID: id, RType: resource.TypeEntertainmentConfiguration}},
			Errors: []clipError{},
		})
	case errors.Is(err, ownership.ErrOwnershipConflict):
		writeJSON(w, http.StatusOK, clipResponse{
			Errors: []clipError{{Description: "cannot override stream ownership"}},
		})
	default:
		writeDomainError(w, err)
	}
}

// handleAddLight adds a light on a new channel.
//
// PUT /develop/groupconfig/{id}/light
// Body: {"location":[x,y]}
// Response: ids of the created resources
func (b *clipV2Backend) handleAddLight(w http.ResponseWriter, r *http.Request) {
	var req lightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	x, y, err := req.position()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	added, changes, err := b.store.AddLight(r.Context(), chi.URLParam(r, "id"), x, y)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	b.srv.publish(changes)
	writeJSON(w, http.StatusOK, added)
}

// handleDeleteChannel removes a channel and the resources only it used.
//
// DELETE /develop/groupconfig/{id}/light/{channelID}
func (b *clipV2Backend) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.Atoi(chi.URLParam(r, "channelID"))
	if err != nil {
		writeBadRequest(w, "channel id must be an integer")
		return
	}

	changes, err := b.store.DeleteChannel(r.Context(), chi.URLParam(r, "id"), channelID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	b.srv.publish(changes)
	w.WriteHeader(http.StatusOK)
}
