package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/bridgesim/internal/stream"
)

// frameRequest is the body of POST /develop/stream. Data is a list of byte
// values rather than base64 so tooling can write frames by hand.
type frameRequest struct {
	ColorMode int   `json:"colormode"`
	Version   int   `json:"version"`
	Data      []int `json:"data"`
}

type colorState struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// handleLightColor returns the colour of a stream light id in the last
// decoded frame.
//
// GET /develop/lights/{id}
// Response: {"state":{"r":R,"g":G,"b":B}}, 400 if the light was not in it
func (s *Server) handleLightColor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "light id must be an integer")
		return
	}
	c, ok := s.poller.LightColor(id)
	if !ok {
		writeBadRequest(w, "light not present in the last frame")
		return
	}
	writeJSON(w, http.StatusOK, map[string]colorState{
		"state": {R: c.R, G: c.G, B: c.B},
	})
}

// handleStreamStatus returns the decoder status.
//
// GET /develop/stream
func (s *Server) handleStreamStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.poller.Status())
}

// handleStreamFrame offers a frame to the decoder, as a UDP datagram would.
//
// POST /develop/stream
// Body: {"colormode":0,"version":1|2,"data":[bytes...]}
// Response: 202 Accepted; decoding happens on the next tick
func (s *Server) handleStreamFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	data := make([]byte, len(req.Data))
	for i, v := range req.Data {
		if v < 0 || v > 255 {
			writeBadRequest(w, "data must hold byte values 0-255")
			return
		}
		data[i] = byte(v)
	}

	err := s.poller.Offer(stream.Frame{ColorMode: req.ColorMode, Version: req.Version, Data: data})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
