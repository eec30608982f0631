package webd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/params"
)

const lastSnapshotKey = "last"

type WebDaemon struct {
	Config  *params.WebDaemonConfig
	Session *app.Session

	logger         *slog.Logger
	started        time.Time
	melodyInstance *melody.Melody
	lastSnapshot   *ttlcache.Cache[string, trip.Snapshot]
	metrics        *daemonMetrics
}

func NewWebDaemon(config *params.WebDaemonConfig, session *app.Session) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	s := &WebDaemon{
		Config:  config,
		Session: session,

		logger:  slog.With("d", "web"),
		started: time.Now(),
		lastSnapshot: ttlcache.New[string, trip.Snapshot](
			ttlcache.WithTTL[string, trip.Snapshot](params.CacheLastSnapshotTTL)),
	}
	s.initMelody()
	s.metrics = newDaemonMetrics(s.melodyInstance)
	return s
}

// Run serves HTTP until ctx is done, relaying engine snapshots to websocket clients.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *WebDaemon) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.relaySnapshots(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown", "error", err)
		}
		_ = s.melodyInstance.Close()
	}()

	s.logger.Info("Starting web daemon", "address", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	// Websocket clients get a snapshot on connect, and every snapshot after.
	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})
	router.Path("/metrics").Handler(s.metrics.handler()).Methods(http.MethodGet)

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/snapshot").HandlerFunc(s.handleSnapshot).Methods(http.MethodGet)
	apiJSONRoutes.Path("/settings").HandlerFunc(s.handleGetSettings).Methods(http.MethodGet)
	apiJSONRoutes.Path("/trips").HandlerFunc(s.handleRecentTrips).Methods(http.MethodGet)
	apiJSONRoutes.Path("/trips/{id}").HandlerFunc(s.handleTrip).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(s.tokenAuthenticationMiddleware)

	authenticatedAPIRoutes.Path("/location").HandlerFunc(s.handleLocation).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/heading").HandlerFunc(s.handleHeading).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/satellites").HandlerFunc(s.handleSatellites).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/samples").HandlerFunc(s.handleSamples).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/reset").HandlerFunc(s.handleReset).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/settings").HandlerFunc(s.handlePutSettings).Methods(http.MethodPut)

	return router
}
