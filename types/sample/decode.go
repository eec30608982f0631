package sample

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/tripd/geo/heading"
	"github.com/tidwall/gjson"
)

var (
	ErrUnknownSample   = errors.New("unknown sample")
	ErrMalformedSample = errors.New("malformed sample")
)

// Decode turns one JSON object into samples.
// Flat objects carry a "type" of location, heading, satellites, reset or settings.
// GeoJSON Point features (and collections of them) decode to a location sample,
// followed by a heading sample when the feature has a non-negative Heading.
func Decode(msg []byte) ([]Sample, error) {
	parsed := gjson.ParseBytes(msg)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrUnknownSample)
	}

	ts := parsed.Get("time")
	var at time.Time
	if ts.Exists() {
		at = ts.Time()
	}

	switch typ := parsed.Get("type").String(); typ {
	case string(KindLocation):
		lat, lon := parsed.Get("lat"), parsed.Get("lon")
		if !lon.Exists() {
			lon = parsed.Get("long")
		}
		if !lat.Exists() || !lon.Exists() {
			return nil, fmt.Errorf("%w: location without lat/lon", ErrMalformedSample)
		}
		s := Sample{Kind: KindLocation, Time: at}
		s.Location.Lat = lat.Float()
		s.Location.Lon = lon.Float()
		if speed := parsed.Get("speed"); speed.Type == gjson.Number {
			v := speed.Float()
			s.Location.Speed = &v
		}
		return []Sample{s}, nil

	case string(KindHeading):
		s := Sample{Kind: KindHeading, Time: at}
		if az := parsed.Get("azimuth"); az.Type == gjson.Number {
			s.Azimuth = az.Float()
		} else if rad := parsed.Get("azimuth_rad"); rad.Type == gjson.Number {
			s.Azimuth = heading.AzimuthFromRadians(rad.Float())
		} else {
			return nil, fmt.Errorf("%w: heading without azimuth", ErrMalformedSample)
		}
		return []Sample{s}, nil

	case string(KindSatellites):
		return []Sample{{
			Kind:    KindSatellites,
			Time:    at,
			Visible: int(parsed.Get("visible").Int()),
			Used:    int(parsed.Get("used").Int()),
		}}, nil

	case string(KindReset):
		return []Sample{{Kind: KindReset, Time: at}}, nil

	case string(KindSettings):
		key := parsed.Get("key")
		if key.String() == "" {
			return nil, fmt.Errorf("%w: settings without key", ErrMalformedSample)
		}
		return []Sample{{
			Kind:  KindSettings,
			Time:  at,
			Key:   key.String(),
			Value: parsed.Get("value").Bool(),
		}}, nil

	case "Feature":
		f, err := geojson.UnmarshalFeature(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSample, err)
		}
		return decodeFeature(f)

	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSample, err)
		}
		var out []Sample
		for _, f := range fc.Features {
			ss, err := decodeFeature(f)
			if err != nil {
				return nil, err
			}
			out = append(out, ss...)
		}
		return out, nil
	}
	return nil, ErrUnknownSample
}

// decodeFeature reads a track point feature.
// Negative Speed and Heading mean the device had no reading.
func decodeFeature(f *geojson.Feature) ([]Sample, error) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return nil, fmt.Errorf("%w: feature geometry is %T, want Point", ErrUnknownSample, f.Geometry)
	}
	var at time.Time
	if ts := f.Properties.MustString("Time", ""); ts != "" {
		at, _ = time.Parse(time.RFC3339Nano, ts)
	}

	loc := Sample{Kind: KindLocation, Time: at}
	loc.Location.Lat = pt.Lat()
	loc.Location.Lon = pt.Lon()
	if speed := f.Properties.MustFloat64("Speed", -1); speed >= 0 {
		loc.Location.Speed = &speed
	}
	out := []Sample{loc}

	if hdg := f.Properties.MustFloat64("Heading", -1); hdg >= 0 {
		out = append(out, Sample{Kind: KindHeading, Time: at, Azimuth: hdg})
	}
	return out, nil
}

// ScanJSONMessages reads a stream of JSON messages from an io.Reader,
// and calls onEach for each decoded message.
// Both newline-delimited objects and a single JSON array of objects are accepted.
func ScanJSONMessages(body io.Reader, onEach func(message json.RawMessage) error) error {
	buf := bufio.NewReader(body)
	peek, err := buf.Peek(1)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewBuffer(peek))
	t, err := dec.Token()
	if err != nil {
		return err
	}
	dec = json.NewDecoder(buf)
	if t == json.Delim('[') {
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	for dec.More() {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode err: %w", err)
		}
		if err := onEach(msg); err != nil {
			return err
		}
	}
	return nil
}
