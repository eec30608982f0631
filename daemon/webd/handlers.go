package webd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/conceptual"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/settings"
	"github.com/rotblauer/tripd/stream"
	"github.com/rotblauer/tripd/types/sample"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Address   string    `json:"address"`
	WSOpen    bool      `json:"ws_open"`
	WSConns   int       `json:"ws_conns"`
	TripState string    `json:"trip_state"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Address:   s.Config.Address,
		WSOpen:    !s.melodyInstance.IsClosed(),
		WSConns:   s.melodyInstance.Len(),
		TripState: s.Session.Engine.State().String(),
	})
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, status int, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Engine.Snapshot())
}

type acceptedResponse struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped,omitempty"`
}

// submit hands smp to the session loop.
func (s *WebDaemon) submit(w http.ResponseWriter, r *http.Request, smp sample.Sample) {
	if err := s.Session.Submit(r.Context(), smp); err != nil {
		s.logger.Warn("Failed to submit sample", "kind", smp.Kind, "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.metrics.samples.WithLabelValues(string(smp.Kind)).Inc()
	s.writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: 1})
}

func (s *WebDaemon) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.metrics.rejected.WithLabelValues(r.URL.Path).Inc()
	s.logger.Warn("Bad request", "url", r.URL.String(), "error", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

type locationRequest struct {
	Time  time.Time `json:"time"`
	Speed *float64  `json:"speed"`
	Lat   *float64  `json:"lat"`
	Lon   *float64  `json:"lon"`
}

func (s *WebDaemon) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		s.badRequest(w, r, fmt.Errorf("%w: location without lat/lon", sample.ErrMalformedSample))
		return
	}
	// A missing speed is accepted here and ignored by the engine.
	s.submit(w, r, sample.Sample{
		Kind:     sample.KindLocation,
		Time:     req.Time,
		Location: trip.Location{Speed: req.Speed, Lat: *req.Lat, Lon: *req.Lon},
	})
}

type headingRequest struct {
	Azimuth *float64 `json:"azimuth"`
}

func (s *WebDaemon) handleHeading(w http.ResponseWriter, r *http.Request) {
	var req headingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if req.Azimuth == nil {
		s.badRequest(w, r, fmt.Errorf("%w: heading without azimuth", sample.ErrMalformedSample))
		return
	}
	s.submit(w, r, sample.Sample{Kind: sample.KindHeading, Azimuth: *req.Azimuth})
}

type satellitesRequest struct {
	Visible int `json:"visible"`
	Used    int `json:"used"`
}

func (s *WebDaemon) handleSatellites(w http.ResponseWriter, r *http.Request) {
	var req satellitesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.submit(w, r, sample.Sample{Kind: sample.KindSatellites, Visible: req.Visible, Used: req.Used})
}

func (s *WebDaemon) handleReset(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, sample.Sample{Kind: sample.KindReset})
}

// handleSamples accepts a batch of samples, newline-delimited or as a JSON array,
// in the same format the replay command reads.
func (s *WebDaemon) handleSamples(w http.ResponseWriter, r *http.Request) {
	resp := acceptedResponse{}
	samples, errs := stream.Samples(r.Context(), r.Body, nil, func(msg json.RawMessage, err error) {
		resp.Skipped++
		s.metrics.rejected.WithLabelValues(r.URL.Path).Inc()
	})
	for smp := range samples {
		if err := s.Session.Submit(r.Context(), smp); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.metrics.samples.WithLabelValues(string(smp.Kind)).Inc()
		resp.Accepted++
	}
	if err := <-errs; err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *WebDaemon) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Settings.Settings(r.Context()))
}

// handlePutSettings applies a partial object of setting keys to values.
// Unknown keys reject the whole request.
func (s *WebDaemon) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	for k := range req {
		if !settings.ValidKey(k) {
			s.badRequest(w, r, fmt.Errorf("%w: %q", settings.ErrUnknownKey, k))
			return
		}
	}
	// Apply in a stable order so subscribers see a deterministic sequence.
	for _, k := range settings.Keys {
		v, ok := req[k]
		if !ok {
			continue
		}
		if err := s.Session.Settings.Set(r.Context(), k, v); err != nil {
			if errors.Is(err, settings.ErrUnknownKey) {
				s.badRequest(w, r, err)
				return
			}
			s.logger.Error("Failed to store setting", "key", k, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.Session.Settings.Settings(r.Context()))
}

func (s *WebDaemon) handleRecentTrips(w http.ResponseWriter, r *http.Request) {
	type tripsResponse struct {
		Current *app.TripSummary  `json:"current,omitempty"`
		Recent  []app.TripSummary `json:"recent"`
	}
	resp := tripsResponse{Recent: s.Session.RecentTrips()}
	if cur, ok := s.Session.Current(); ok {
		resp.Current = &cur
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *WebDaemon) handleTrip(w http.ResponseWriter, r *http.Request) {
	id := conceptual.TripID(mux.Vars(r)["id"])
	t, ok := s.Session.Trip(id)
	if !ok {
		http.Error(w, "no trip that", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}
