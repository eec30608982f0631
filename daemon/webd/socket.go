package webd

import (
	"context"
	"encoding/json"

	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/tripd/geo/trip"
)

type websocketAction string

var websocketActionSnapshot websocketAction = "snapshot"

type broadcast struct {
	Action   websocketAction `json:"action"`
	Snapshot trip.Snapshot   `json:"snapshot"`
}

// initMelody sets up the websocket handler.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", ms.Request.RemoteAddr)
		snap := s.latestSnapshot()
		b, err := json.Marshal(broadcast{Action: websocketActionSnapshot, Snapshot: snap})
		if err != nil {
			s.logger.Error("Failed to marshal snapshot", "error", err)
			return
		}
		if err := ms.Write(b); err != nil {
			s.logger.Warn("Failed to write snapshot", "error", err)
		}
	})

	// Clients have nothing to tell us. Log and drop.
	s.melodyInstance.HandleMessage(func(ms *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", ms.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(ms *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", ms.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(ms *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", ms.Request.RemoteAddr, "error", e)
	})
}

// latestSnapshot prefers the cached snapshot, falling back to asking the engine.
func (s *WebDaemon) latestSnapshot() trip.Snapshot {
	if item := s.lastSnapshot.Get(lastSnapshotKey); item != nil {
		return item.Value()
	}
	return s.Session.Engine.Snapshot()
}

// relaySnapshots caches and broadcasts every engine snapshot until ctx is done.
// A slow broadcast only costs intermediate snapshots; the engine keeps the newest waiting.
func (s *WebDaemon) relaySnapshots(ctx context.Context) {
	snaps := make(chan trip.Snapshot, 16)
	sub := s.Session.Engine.SubscribeSnapshots(snaps)
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				s.logger.Error("Snapshot subscription failed", "error", err)
			}
			return
		case snap := <-snaps:
			s.lastSnapshot.Set(lastSnapshotKey, snap, ttlcache.DefaultTTL)
			b, err := json.Marshal(broadcast{Action: websocketActionSnapshot, Snapshot: snap})
			if err != nil {
				s.logger.Error("Failed to marshal snapshot", "error", err)
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				s.logger.Warn("Failed to broadcast snapshot", "error", err)
				continue
			}
			s.metrics.broadcasts.Inc()
		}
	}
}
