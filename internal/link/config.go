package link

import "time"

// Retry, watchdog, and command-pacing constants.
const (
	// DefaultStallTimeout is how long a streaming link may go without a
	// decoded PPG sample before the watchdog forces a reconnect.
	DefaultStallTimeout = 5 * time.Second

	// resolveTimeout bounds one device-resolution attempt.
	resolveTimeout = 8 * time.Second

	// watchdogPeriod is the stall poll interval.
	watchdogPeriod = 500 * time.Millisecond

	// notFoundRetryDelay is the fixed wait after a resolution miss.
	notFoundRetryDelay = time.Second

	// backoffStep scales the capped retry backoff: min(attempt, maxBackoffSteps) steps.
	backoffStep     = time.Second
	maxBackoffSteps = 5

	// Delay before the first ENABLE command and spacing to its repeat. The
	// repeat compensates for devices that drop the first packet; the
	// command is idempotent.
	enableFirstDelay  = 200 * time.Millisecond
	enableSecondDelay = 150 * time.Millisecond

	// requestedMTU is the transfer unit asked of the carrier.
	requestedMTU = 247
)

// Reconnect reason strings surfaced in ConnectionState values.
const (
	ReasonNotFound     = "not found"
	ReasonDuplicateMAC = "duplicate_mac"
	ReasonStall        = "stall"
)

// LinkConfig configures one hand's link.
type LinkConfig struct {
	// Address pins the hand to a fixed device address. Optional.
	Address string

	// NamePrefix filters discovered devices by advertised name. Optional.
	NamePrefix string

	// StallTimeout overrides DefaultStallTimeout when positive.
	StallTimeout time.Duration
}

func (c LinkConfig) stallTimeout() time.Duration {
	if c.StallTimeout > 0 {
		return c.StallTimeout
	}
	return DefaultStallTimeout
}
