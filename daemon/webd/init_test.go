package webd

import (
	"context"
	"testing"

	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/settings"
)

// newTestWebDaemon creates a WebDaemon over a running in-memory session.
// Everything is torn down with the test.
func newTestWebDaemon(t *testing.T, token string) *WebDaemon {
	t.Helper()
	session, err := app.NewSession(nil, settings.NewProvider(settings.NewMemoryStore()), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = session.Run(ctx)
	}()

	config := params.DefaultTestWebDaemonConfig()
	config.Token = token
	d := NewWebDaemon(config, session)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		d.relaySnapshots(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		<-relayDone
		session.Close()
		_ = d.melodyInstance.Close()
	})
	return d
}
