//go:build linux

package doctor

import (
	"fmt"

	"murmur/gesture"
	"murmur/keywatch"
)

func attachSources(eng *gesture.Engine) {
	probe := keywatch.NewProbe(keywatch.DefaultKeyCode)
	eng.AttachSource(keywatch.NewMonitor())
	eng.AttachSource(keywatch.NewPoller(probe, gesture.Defaults().PollInterval))
	eng.AttachGated(keywatch.NewChannel(keywatch.DefaultKeyCode, probe))
}

func printPermissionHint() {
	fmt.Println("  Fix with: sudo usermod -aG input $USER  (then log out and back in)")
	if diag, err := keywatch.Diagnose(); err == nil {
		fmt.Println(diag)
	}
}
