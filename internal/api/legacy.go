package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/legacy"
	"github.com/nerrad567/bridgesim/internal/ownership"
)

// Legacy protocol error types.
const (
	legacyErrResourceNotAvailable = 3
	legacyErrStreamOwnership      = 307
)

// legacyBackend serves flat groups.
type legacyBackend struct {
	srv   *Server
	store *legacy.Store
}

type legacyError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type groupRequest struct {
	Stream *struct {
		Active *bool `json:"active"`
	} `json:"stream"`
}

func (b *legacyBackend) Generation() string { return config.GenerationLegacy }

func (b *legacyBackend) SmallConfig() map[string]any {
	return smallConfig(b.FullConfig(), "name", "bridgeid", "modelid", "apiversion")
}

func (b *legacyBackend) FullConfig() map[string]any {
	return b.srv.bridgeConfig()
}

func (b *legacyBackend) Routes(r chi.Router) {
	r.Get("/api/{user}", b.handleFullState)
	r.Get("/api/{user}/groups", b.handleGroups)
	r.Get("/api/{user}/groups/{id}", b.handleGroup)
	r.Put("/api/{user}/groups/{id}", b.handleSetStream)
	r.Put("/api/{user}/groups/{id}/action", b.handleGroupAction)
	r.Get("/api/{user}/lights", b.handleLights)

	r.Put("/develop/groupconfig/{id}/state", b.handleDevelopState)
	r.Put("/develop/groupconfig/{id}/light", b.handleAddLight)
	r.Delete("/develop/groupconfig/{id}/light/{lightID}", b.handleDeleteLight)
}

// handleFullState returns config, groups and lights in one document.
//
// GET /api/{user}
func (b *legacyBackend) handleFullState(w http.ResponseWriter, _ *http.Request) {
	groups, err := b.store.Groups()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	lights, err := b.store.Lights()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config": b.FullConfig(),
		"groups": json.RawMessage(groups),
		"lights": json.RawMessage(lights),
	})
}

// GET /api/{user}/groups
func (b *legacyBackend) handleGroups(w http.ResponseWriter, _ *http.Request) {
	data, err := b.store.Groups()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// GET /api/{user}/groups/{id}
func (b *legacyBackend) handleGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := b.store.Group(id)
	if errors.Is(err, legacy.ErrNotFound) {
		writeLegacyError(w, legacyErrResourceNotAvailable, "/groups/"+id,
			fmt.Sprintf("resource, /groups/%s, not available", id))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// GET /api/{user}/lights
func (b *legacyBackend) handleLights(w http.ResponseWriter, _ *http.Request) {
	data, err := b.store.Lights()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// handleSetStream claims or releases streaming on a group for the local
// user.
//
// PUT /api/{user}/groups/{id}
// Body: {"stream":{"active":bool}}
// Response: [{"success":{"/groups/{id}/stream/active":bool}}]
// A group held by another owner answers with error type 307.
func (b *legacyBackend) handleSetStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req groupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Stream == nil || req.Stream.Active == nil {
		writeBadRequest(w, "stream.active is required")
		return
	}
	active := *req.Stream.Active
	address := "/groups/" + id + "/stream/active"

	var err error
	if active {
		_, err = b.srv.arbiter.Activate(id, b.srv.bridge.Username)
	} else {
		_, err = b.srv.arbiter.Deactivate(id)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, []map[string]map[string]bool{{
			"success": {address: active},
		}})
	case errors.Is(err, ownership.ErrOwnershipConflict):
		writeLegacyError(w, legacyErrStreamOwnership, address, "Cannot claim stream ownership")
	case errors.Is(err, legacy.ErrNotFound):
		writeLegacyError(w, legacyErrResourceNotAvailable, "/groups/"+id,
			fmt.Sprintf("resource, /groups/%s, not available", id))
	default:
		writeDomainError(w, err)
	}
}

// handleGroupAction accepts and ignores group light commands.
//
// PUT /api/{user}/groups/{id}/action
func (b *legacyBackend) handleGroupAction(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// handleDevelopState sets the stream state on behalf of any owner.
//
// PUT /develop/groupconfig/{id}/state
// Body: {"active":bool,"owner":string}
func (b *legacyBackend) handleDevelopState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req stateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeBadRequest(w, "active is required")
		return
	}

	var err error
	if *req.Active {
		_, err = b.srv.arbiter.Activate(id, req.owner(b.srv.bridge.Username))
	} else {
		_, err = b.srv.arbiter.Deactivate(id)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleAddLight adds a light to the group.
//
// PUT /develop/groupconfig/{id}/light
// Body: {"location":[x,y]}
// Response: {"id": lightID}
func (b *legacyBackend) handleAddLight(w http.ResponseWriter, r *http.Request) {
	var req lightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	x, y, err := req.position()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	lightID, changes, err := b.store.AddLight(r.Context(), chi.URLParam(r, "id"), x, y)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	b.srv.publish(changes)
	writeJSON(w, http.StatusOK, map[string]string{"id": lightID})
}

// handleDeleteLight removes a light from the group.
//
// DELETE /develop/groupconfig/{id}/light/{lightID}
func (b *legacyBackend) handleDeleteLight(w http.ResponseWriter, r *http.Request) {
	changes, err := b.store.DeleteLight(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lightID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	b.srv.publish(changes)
	w.WriteHeader(http.StatusOK)
}

func writeLegacyError(w http.ResponseWriter, errType int, address, description string) {
	writeJSON(w, http.StatusOK, []map[string]legacyError{{
		"error": {Type: errType, Address: address, Description: description},
	}})
}
