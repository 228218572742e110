//go:build linux

package main

import (
	"time"

	"murmur/gesture"
	"murmur/keywatch"
)

// buildSources wires the three observation paths: the passive hotkey
// monitor, the probe-backed poller, and the permission-gated evdev
// channel.
func buildSources(eng *gesture.Engine, poll time.Duration) {
	probe := keywatch.NewProbe(keywatch.DefaultKeyCode)
	eng.AttachSource(keywatch.NewMonitor())
	eng.AttachSource(keywatch.NewPoller(probe, poll))
	eng.AttachGated(keywatch.NewChannel(keywatch.DefaultKeyCode, probe))
}
