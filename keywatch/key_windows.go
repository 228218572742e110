//go:build windows

package keywatch

import "golang.design/x/hotkey"

// Virtual-key VK_RCONTROL.
const monitorKey = hotkey.Key(0xA3)
