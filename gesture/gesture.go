// Package gesture classifies raw observations of one tracked key into
// exactly-once hold/tap/double-tap gestures. Observations arrive from
// several redundant OS channels that may duplicate or contradict each
// other; the engine reconciles them into a clean edge stream before
// classification.
package gesture

import "time"

// Kind identifies a classified gesture.
type Kind int

const (
	HoldStart Kind = iota
	HoldEnd
	SingleTap
	DoubleTap
)

func (k Kind) String() string {
	switch k {
	case HoldStart:
		return "hold-start"
	case HoldEnd:
		return "hold-end"
	case SingleTap:
		return "single-tap"
	case DoubleTap:
		return "double-tap"
	default:
		return "unknown"
	}
}

// SourceKind identifies which observation channel reported an edge.
type SourceKind int

const (
	// SourceChannel is the low-level input channel (lowest latency,
	// permission-gated, can be revoked at runtime).
	SourceChannel SourceKind = iota
	// SourceMonitor is an application-level passive observer.
	SourceMonitor
	// SourcePoller is the periodic key-state sampler.
	SourcePoller
)

func (s SourceKind) String() string {
	switch s {
	case SourceChannel:
		return "channel"
	case SourceMonitor:
		return "monitor"
	case SourcePoller:
		return "poller"
	default:
		return "unknown"
	}
}

// Observation is one raw report about the tracked key, already filtered
// to that key by the source that produced it.
type Observation struct {
	Down   bool
	Source SourceKind
	At     time.Time
}

// Config holds the classifier timing knobs. A zero value is unusable;
// use Defaults or a settings store.
type Config struct {
	HoldThreshold   time.Duration
	DoubleTapWindow time.Duration
	PollInterval    time.Duration
}

// doubleTapCooldownCeiling caps the suppression interval after a
// double-tap so a short window never produces a long dead zone.
const doubleTapCooldownCeiling = 300 * time.Millisecond

func Defaults() Config {
	return Config{
		HoldThreshold:   350 * time.Millisecond,
		DoubleTapWindow: 400 * time.Millisecond,
		PollInterval:    200 * time.Millisecond,
	}
}

// Store supplies timing configuration and persists updates.
type Store interface {
	Timing() Config
	SaveTiming(hold, doubleTap time.Duration) error
}

// Source is one producer of tracked-key observations. Start must not
// block; emit may be called from any goroutine and stays valid until
// Stop returns.
type Source interface {
	Start(emit func(Observation)) error
	Stop()
}
