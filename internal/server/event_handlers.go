package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const eventKeepAlive = 25 * time.Second

// handleEvents streams auth and catalog changes as server-sent events. The
// current state is sent first. A client too slow to keep up is disconnected
// and is expected to reconnect.
func (ms *MusicServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Streaming unavailable", err)
		return
	}

	authEvents := ms.store.Auth().Subscribe()
	defer ms.store.Auth().Unsubscribe(authEvents)
	catalogEvents := ms.store.Catalog().Subscribe()
	defer ms.store.Catalog().Unsubscribe(catalogEvents)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	entry := ms.logger.WithField("remote", r.RemoteAddr)
	entry.Debug("Event stream opened")
	defer entry.Debug("Event stream closed")

	if err := send("auth", ms.store.AuthState()); err != nil {
		return
	}
	if err := send("catalog", ms.store.CatalogView()); err != nil {
		return
	}

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-authEvents:
			if !ok {
				return
			}
			err = send("auth", state)
		case _, ok := <-catalogEvents:
			if !ok {
				return
			}
			// The read model is derived from the latest snapshot, which also
			// covers any changes queued behind this one.
			err = send("catalog", ms.store.CatalogView())
		case <-keepAlive.C:
			if _, err = fmt.Fprint(w, ": keep-alive\n\n"); err == nil {
				err = rc.Flush()
			}
		}
		if err != nil {
			entry.WithError(err).Debug("Event stream write failed")
			return
		}
	}
}
