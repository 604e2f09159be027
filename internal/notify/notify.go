// Package notify delivers an assembled digest to a messaging channel, an
// email inbox, a spreadsheet, or the terminal.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/paperfeed/internal/digest"
)

// Sink accepts one assembled digest. Retries, if any, are the sink's own
// business.
type Sink interface {
	Send(ctx context.Context, d *digest.Digest) error
	Name() string
}

// Dispatch hands the result of digest.Assemble to sink. An empty digest (or
// digest.ErrNothingToSend) is suppressed when suppressIfEmpty is set and
// otherwise sent as an empty digest. It reports whether the sink was called.
func Dispatch(ctx context.Context, sink Sink, d *digest.Digest, assembleErr error, suppressIfEmpty bool) (bool, error) {
	if assembleErr != nil && !errors.Is(assembleErr, digest.ErrNothingToSend) {
		return false, assembleErr
	}
	if d.Empty() {
		if suppressIfEmpty {
			return false, nil
		}
		if d == nil {
			d = &digest.Digest{Date: time.Now()}
		}
	}
	if err := sink.Send(ctx, d); err != nil {
		return true, fmt.Errorf("sending digest via %s: %w", sink.Name(), err)
	}
	return true, nil
}
