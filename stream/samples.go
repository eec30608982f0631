package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotblauer/tripd/types/sample"
)

var errStopped = errors.New("stopped")

// Samples decodes JSON messages from r onto the returned channel.
// Messages that do not decode are passed to onSkip (if non-nil) and dropped.
// The error channel yields at most one read error and is closed with the sample channel.
// meter may be nil.
func Samples(ctx context.Context, r io.Reader, meter *Meter, onSkip func(msg json.RawMessage, err error)) (<-chan sample.Sample, <-chan error) {
	out := make(chan sample.Sample)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		err := sample.ScanJSONMessages(r, func(msg json.RawMessage) error {
			decoded, err := sample.Decode(msg)
			if err != nil {
				if meter != nil {
					meter.Skip()
				}
				if onSkip != nil {
					onSkip(msg, err)
				}
				return nil
			}
			if len(decoded) == 0 {
				return nil
			}
			if meter != nil {
				meter.Mark(decoded[0].Time, len(msg))
			}
			for _, s := range decoded {
				select {
				case <-ctx.Done():
					return errStopped
				case out <- s:
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, errStopped) {
			errs <- err
		}
	}()
	return out, errs
}
