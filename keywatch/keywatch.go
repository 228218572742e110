// Package keywatch observes the physical state of the tracked key
// through redundant OS channels and feeds murmur/gesture with raw
// observations. Three observers exist: the low-level input channel
// (lowest latency, permission-gated, revocable), a passive
// application-level monitor, and a periodic key-state poller used as a
// safety net for edges the other two dropped.
package keywatch

// DefaultKeyCode is the evdev code of the tracked key, right Ctrl.
const DefaultKeyCode uint16 = 97 // KEY_RIGHTCTRL

// Probe answers "is the tracked key physically down right now" from
// hardware state, synchronously. Used by the poller and to settle
// ambiguous channel reports.
type Probe interface {
	Down() (bool, error)
}
