package browsekit

import (
	"time"

	"github.com/tebeka/selenium"
)

// Defaults for WaitUntil. Deliberately shorter than the engine's own
// defaults (60s/100ms); scraping code that needs longer passes WithTimeout.
const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultWaitInterval = 500 * time.Millisecond
)

type waitConfig struct {
	timeout  time.Duration
	interval time.Duration
}

// WaitOption configures a single WaitUntil call.
type WaitOption func(*waitConfig)

// WithTimeout sets the total time WaitUntil polls before giving up.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout = d }
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.interval = d }
}

// WaitUntil polls cond against the session until it reports true, it
// returns an error, or the timeout elapses. Polling is performed by the
// engine's WaitWithTimeoutAndInterval.
func (b *Browser) WaitUntil(cond selenium.Condition, opts ...WaitOption) error {
	c := waitConfig{timeout: DefaultWaitTimeout, interval: DefaultWaitInterval}
	for _, opt := range opts {
		opt(&c)
	}
	return b.wd.WaitWithTimeoutAndInterval(cond, c.timeout, c.interval)
}
