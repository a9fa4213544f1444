// Package retry decides whether and how long to wait before re-issuing a
// failed batch fetch. Validate and submit are user-initiated single-shot
// actions and are never routed through here.
package retry

import (
	"time"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
)

// Policy holds the retry knobs. The zero value is not usable; start from
// Default and override via config.
type Policy struct {
	MaxAttempts int           // auto-retry while the attempt count is below this
	Base        time.Duration // first exponential backoff step
	Cap         time.Duration // backoff ceiling
	HintMargin  time.Duration // safety margin added on top of server wait hints
}

// Default is the stock policy: up to 3 automatic retries, 1s/2s/4s
// backoff, 300ms margin on explicit server hints.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        time.Second,
		Cap:         4 * time.Second,
		HintMargin:  300 * time.Millisecond,
	}
}

// Decision is the outcome of evaluating one failure.
type Decision struct {
	// Retry is true when the fetch should be re-issued automatically
	// after Delay.
	Retry bool

	// Delay is the wait before the next attempt when Retry is true. When
	// Retry is false and the failure was rate limited, Delay carries the
	// server's wait hint for display.
	Delay time.Duration
}

// Decide evaluates a fetch failure. attempt is the 0-based count of
// failures so far (0 on the first failure).
//
// Rate-limited failures (upstream 429) are never retried automatically,
// regardless of attempt count: the upstream asked for backpressure and
// the operator decides when to go again. Other failures retry while
// under the cap, honoring an explicit server wait hint plus margin and
// falling back to bounded exponential backoff.
func (p Policy) Decide(attempt int, err *api.Error) Decision {
	if err.RateLimited() {
		return Decision{Retry: false, Delay: err.RetryAfter}
	}
	if attempt >= p.MaxAttempts {
		return Decision{Retry: false}
	}
	if err.RetryAfter > 0 {
		return Decision{Retry: true, Delay: err.RetryAfter + p.HintMargin}
	}
	return Decision{Retry: true, Delay: p.Backoff(attempt)}
}

// Backoff returns min(Base << attempt, Cap).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// State records the fetch retry lifecycle: created on first failure,
// cleared on any success, recreated with an incremented attempt count on
// each subsequent failure.
type State struct {
	Attempt        int    // 0-based
	LastError      string // message of the most recent failure
	UpstreamStatus int    // 0 when the failure carried none
	SuggestedWait  time.Duration
}

// NewState builds the state for a failure at the given attempt number.
func NewState(attempt int, err *api.Error) *State {
	return &State{
		Attempt:        attempt,
		LastError:      err.Message,
		UpstreamStatus: err.UpstreamStatus,
		SuggestedWait:  err.RetryAfter,
	}
}
