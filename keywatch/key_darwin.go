//go:build darwin

package keywatch

import "golang.design/x/hotkey"

// Carbon kVK_RightControl.
const monitorKey = hotkey.Key(0x3E)
