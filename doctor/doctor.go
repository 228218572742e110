// Package doctor runs interactive environment checks so users can see
// which prerequisite is broken before filing a bug.
package doctor

import (
	"fmt"
	"os"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/gesture"
	"murmur/permission"
)

// Run executes diagnostic checks and returns an exit code (0=all pass,
// 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - system diagnostics")
	fmt.Println("==================================")

	allPass := true

	if !checkPermission() {
		allPass = false
	}
	if !checkKeyGesture() {
		allPass = false
	}
	if allPass && !checkAudio() {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}
	if !checkAPIKeys() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkPermission() bool {
	fmt.Println()
	fmt.Println("[1/5] Input monitoring permission")

	switch permission.System().Status(permission.CapInputMonitoring) {
	case permission.StatusGranted:
		fmt.Println("  PASS: raw input devices readable")
		return true
	case permission.StatusDenied:
		fmt.Println("  WARN: no raw input access, key timing will degrade")
		printPermissionHint()
		// degraded, not broken
		return true
	default:
		fmt.Println("  WARN: permission state unknown")
		return true
	}
}

func checkKeyGesture() bool {
	fmt.Println()
	fmt.Println("[2/5] Key detection")
	fmt.Println("Hold right Ctrl for half a second...")

	store := memStore{cfg: gesture.Defaults()}
	eng := gesture.New(store, permission.System())
	attachSources(eng)

	got := make(chan struct{}, 1)
	eng.Register(gesture.HoldStart, func() {
		select {
		case got <- struct{}{}:
		default:
		}
	})
	if err := eng.Start(); err != nil {
		fmt.Printf("  FAIL: could not start key listener: %v\n", err)
		return false
	}
	defer eng.Stop()

	select {
	case <-got:
		fmt.Println("  PASS: hold gesture detected")
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for key")
		return false
	}
}

func checkAudio() bool {
	fmt.Println()
	fmt.Println("[3/5] Audio capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: audio context: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: device enumeration: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	fmt.Printf("  PASS: %d capture device(s)\n", len(devices))
	for _, d := range devices {
		note := ""
		if audio.IsBluetooth(d.Name) {
			note = " (bluetooth, reduced quality)"
		}
		fmt.Printf("    - %s%s\n", d.Name, note)
	}
	return true
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/5] Clipboard")

	prev, _ := clipboard.Read()
	marker := fmt.Sprintf("murmur-doctor-%d", time.Now().UnixNano())
	if err := clipboard.Copy(marker); err != nil {
		fmt.Printf("  FAIL: copy: %v\n", err)
		return false
	}
	back, err := clipboard.Read()
	clipboard.Copy(prev)
	if err != nil {
		fmt.Printf("  FAIL: read: %v\n", err)
		return false
	}
	if back != marker {
		fmt.Println("  FAIL: clipboard round-trip mismatch")
		return false
	}
	fmt.Println("  PASS: clipboard round-trip")
	return true
}

func checkAPIKeys() bool {
	fmt.Println()
	fmt.Println("[5/5] Transcription API keys")

	groq := os.Getenv("GROQ_API_KEY") != ""
	openai := os.Getenv("OPENAI_API_KEY") != ""
	if !groq && !openai {
		fmt.Println("  FAIL: neither GROQ_API_KEY nor OPENAI_API_KEY is set")
		return false
	}
	if groq {
		fmt.Println("  PASS: GROQ_API_KEY set")
	}
	if openai {
		fmt.Println("  PASS: OPENAI_API_KEY set")
	}
	return true
}

// memStore satisfies gesture.Store without touching the config file.
type memStore struct {
	cfg gesture.Config
}

func (m memStore) Timing() gesture.Config { return m.cfg }

func (m memStore) SaveTiming(hold, doubleTap time.Duration) error { return nil }
