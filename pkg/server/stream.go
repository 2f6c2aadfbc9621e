package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// keepAlive is the interval of SSE comment lines that keep proxies from
// closing an idle stream.
var keepAlive = 30 * time.Second

type updateEvent struct {
	Type        string               `json:"type"`
	Controllers []xlights.Controller `json:"controllers"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleStream sends the current controllers, then one event per watcher
// update until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "streaming not supported"))
		return
	}

	updates, cancel := s.watcher.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, updateEvent{Type: "update", Controllers: nonNil(s.watcher.Controllers())}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case u, ok := <-updates:
			if !ok {
				return
			}
			var ev any = updateEvent{Type: "update", Controllers: nonNil(u.Controllers)}
			if u.Err != nil {
				ev = errorEvent{Type: "error", Error: errors.UserMessage(u.Err)}
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func nonNil(cs []xlights.Controller) []xlights.Controller {
	if cs == nil {
		return []xlights.Controller{}
	}
	return cs
}
