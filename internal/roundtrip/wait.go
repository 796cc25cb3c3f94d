package roundtrip

import (
	"context"
	"fmt"
	"time"

	"github.com/tomyan/csvtrip/internal/chrome"
)

const pollInterval = 100 * time.Millisecond

// poll calls check until it reports true. Errors from check are retried;
// the last one is returned when the timeout expires.
func poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := check()
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: table rows after %s", chrome.ErrTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
