// Package settings persists the user's display preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/tripd/units"
)

const (
	KeyIsMetric       = "isMetric"
	KeyKeepScreenOn   = "keepScreenOn"
	KeyShowSatellites = "showSatellites"
)

var ErrUnknownKey = errors.New("unknown settings key")

// Keys lists every recognised key.
var Keys = []string{KeyIsMetric, KeyKeepScreenOn, KeyShowSatellites}

// Settings is the full set of preferences.
type Settings struct {
	IsMetric       bool `json:"isMetric"`
	KeepScreenOn   bool `json:"keepScreenOn"`
	ShowSatellites bool `json:"showSatellites"`
}

// Defaults is what a fresh install uses.
func Defaults() Settings {
	return Settings{ShowSatellites: true}
}

// Unit is the display unit system selected by IsMetric.
func (s Settings) Unit() units.System {
	return units.FromMetric(s.IsMetric)
}

// Get returns the value of key.
func (s Settings) Get(key string) (bool, error) {
	switch key {
	case KeyIsMetric:
		return s.IsMetric, nil
	case KeyKeepScreenOn:
		return s.KeepScreenOn, nil
	case KeyShowSatellites:
		return s.ShowSatellites, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// ValidKey reports whether key is recognised.
func ValidKey(key string) bool {
	_, err := Defaults().Get(key)
	return err == nil
}

// Store is the string key/value backing a Provider.
type Store interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, value string) error
}

// Provider reads and writes Settings and announces changes.
type Provider interface {
	Settings(ctx context.Context) Settings
	Set(ctx context.Context, key string, value bool) error
	Subscribe(ch chan<- Settings) event.Subscription
}

// StoreProvider implements Provider over a Store.
type StoreProvider struct {
	store Store
	mu    sync.Mutex
	feed  event.FeedOf[Settings]
}

func NewProvider(st Store) *StoreProvider {
	return &StoreProvider{store: st}
}

func (p *StoreProvider) Settings(ctx context.Context) Settings {
	d := Defaults()
	return Settings{
		IsMetric:       p.getBool(ctx, KeyIsMetric, d.IsMetric),
		KeepScreenOn:   p.getBool(ctx, KeyKeepScreenOn, d.KeepScreenOn),
		ShowSatellites: p.getBool(ctx, KeyShowSatellites, d.ShowSatellites),
	}
}

// Set stores value under key. Subscribers receive the new Settings
// when the effective value changed.
func (p *StoreProvider) Set(ctx context.Context, key string, value bool) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.Settings(ctx)
	if err := p.store.SetState(ctx, key, strconv.FormatBool(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	after := p.Settings(ctx)
	if after != before {
		p.feed.Send(after)
	}
	return nil
}

func (p *StoreProvider) Subscribe(ch chan<- Settings) event.Subscription {
	return p.feed.Subscribe(ch)
}

// getBool falls back when the key is missing or does not parse.
func (p *StoreProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store == nil {
		return fallback
	}
	if val, ok := p.store.GetState(ctx, key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
