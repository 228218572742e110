//go:build !linux

package main

import (
	"time"

	"murmur/gesture"
	"murmur/keywatch"
)

// buildSources wires the passive hotkey monitor plus a poller that
// cross-checks against the monitor's shadow state. There is no raw
// device channel off Linux.
func buildSources(eng *gesture.Engine, poll time.Duration) {
	mon := keywatch.NewMonitor()
	eng.AttachSource(mon)
	eng.AttachSource(keywatch.NewPoller(mon, poll))
}
