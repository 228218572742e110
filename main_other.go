//go:build !linux

package main

import "golang.design/x/hotkey/mainthread"

// The event-tap based monitor needs the process main thread; mainthread
// locks it and runs the event loop there while run proceeds elsewhere.
func main() {
	mainthread.Init(run)
}
