package api

import (
	"net/http"
)

// handleEventStream holds a server-sent event stream open and writes every
// published change message to it. The greeting comment is sent first.
//
// GET /eventstream/clip/v2
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	sub := s.events.Subscribe()
	defer s.events.Unsubscribe(sub)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Debug("event stream opened", "remote", r.RemoteAddr)
	defer s.logger.Debug("event stream closed", "remote", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-sub.C():
			if !ok {
				// Dropped by the publisher as too slow.
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				s.logger.Warn("event stream cannot flush", "error", err)
				return
			}
		}
	}
}
