//go:build linux

package keywatch

import "golang.design/x/hotkey"

// X11 keysym for Control_R.
const monitorKey = hotkey.Key(0xffe4)
