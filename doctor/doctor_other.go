//go:build !linux

package doctor

import (
	"murmur/gesture"
	"murmur/keywatch"
)

func attachSources(eng *gesture.Engine) {
	mon := keywatch.NewMonitor()
	eng.AttachSource(mon)
	eng.AttachSource(keywatch.NewPoller(mon, gesture.Defaults().PollInterval))
}

func printPermissionHint() {}
