package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotblauer/tripd/tripz"
	"github.com/rotblauer/tripd/types/sample"
)

const TripLogFileName = "trips.ndjson.gz"

// TripLog is an append-only file of filed trip summaries, one JSON object per line.
type TripLog struct {
	path string
}

func NewTripLog(dir string) *TripLog {
	return &TripLog{path: filepath.Join(dir, TripLogFileName)}
}

func (l *TripLog) Path() string {
	return l.path
}

// Append writes sums to the end of the log.
func (l *TripLog) Append(sums ...TripSummary) error {
	w, err := tripz.NewGZFileWriter(l.path, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, sum := range sums {
		if err := enc.Encode(sum); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// Read returns every logged summary, oldest first.
// A missing log is empty.
func (l *TripLog) Read(ctx context.Context) ([]TripSummary, error) {
	r, err := tripz.NewGZFileReader(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []TripSummary
	err = sample.ScanJSONMessages(r, func(msg json.RawMessage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var sum TripSummary
		if err := json.Unmarshal(msg, &sum); err != nil {
			return err
		}
		sum.Elapsed = time.Duration(sum.ElapsedSeconds * float64(time.Second))
		out = append(out, sum)
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}

// Record appends every trip the session files to the log, until ctx is done.
func (l *TripLog) Record(ctx context.Context, s *Session) {
	filed := make(chan TripSummary, 8)
	sub := s.SubscribeFiled(filed)
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Err():
			return
		case sum := <-filed:
			if err := l.Append(sum); err != nil {
				s.logger.Error("Failed to log trip", "trip", sum.TripID, "path", l.path, "error", err)
			}
		}
	}
}
