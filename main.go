package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/doctor"
	"murmur/encoder"
	"murmur/gesture"
	"murmur/log"
	"murmur/permission"
	"murmur/settings"
	"murmur/shutdown"
	"murmur/transcriber"
)

var version = "dev"

var shutdownOnce sync.Once

func gracefulShutdown(eng *gesture.Engine) {
	shutdownOnce.Do(func() {
		if eng != nil {
			eng.Stop()
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// captureHolder lets the controller see device switches without
// restarting a session mid-flight.
type captureHolder struct {
	mu  sync.Mutex
	dev audio.CaptureDevice
}

func (h *captureHolder) get() audio.CaptureDevice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev
}

func (h *captureHolder) set(dev audio.CaptureDevice) {
	h.mu.Lock()
	h.dev = dev
	h.mu.Unlock()
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix + " (ctrl+g)"
}

func modeLineText(trans transcriber.Transcriber, format string) string {
	providerLabel := trans.Name()
	if lang := trans.GetLanguage(); lang != "" {
		providerLabel += " (" + lang + ")"
	}
	return fmt.Sprintf("[%s | %s]", format, providerLabel)
}

func run() {
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "flac", "Audio upload format: flac or wav")
	providerFlag := flag.String("provider", "", "Transcription provider: groq or openai (default from config)")
	langFlag := flag.String("lang", "", "Language code for transcription (default from config)")
	holdFlag := flag.Duration("hold", 0, "Hold threshold before push-to-talk starts (e.g. 350ms, persisted)")
	tapWindowFlag := flag.Duration("tapwindow", 0, "Double-tap detection window (e.g. 400ms, persisted)")
	autoPasteFlag := flag.Bool("autopaste", true, "Paste into the focused window after transcription")
	noBeepFlag := flag.Bool("nobeep", false, "Disable audio cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	flag.Parse()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	store, err := settings.Load(settings.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := store.Get()

	switch *formatFlag {
	case "flac", "wav":
	default:
		fmt.Printf("Error: unknown format %q (use flac or wav)\n", *formatFlag)
		os.Exit(1)
	}

	provider := cfg.Provider
	if *providerFlag != "" {
		provider = *providerFlag
	}
	trans, err := transcriber.New(provider)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	lang := cfg.Language
	if *langFlag != "" {
		lang = *langFlag
	}
	if lang != "" {
		trans.SetLanguage(lang)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	autoPaste := *autoPasteFlag && cfg.Paste
	if autoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed: %v\n", err)
			fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}
	if *noBeepFlag {
		beep.Disable()
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := actx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
	} else if *setupFlag {
		selectedDevice, err = selectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	captureDevice, err := actx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	holder := &captureHolder{dev: captureDevice}
	ctrl := NewController(holder.get, trans, *formatFlag, autoPaste, tuiSend)

	eng := gesture.New(store, permission.System())
	buildSources(eng, store.Timing().PollInterval)
	eng.Register(gesture.HoldStart, ctrl.HoldStart)
	eng.Register(gesture.HoldEnd, ctrl.HoldEnd)
	eng.Register(gesture.SingleTap, ctrl.SingleTap)
	eng.Register(gesture.DoubleTap, ctrl.DoubleTap)

	if err := eng.Start(); err != nil {
		log.Errorf("gesture engine start error: %v", err)
		fmt.Printf("Error starting key listener: %v\n", err)
		os.Exit(1)
	}
	defer eng.Stop()

	if *holdFlag > 0 || *tapWindowFlag > 0 {
		t := store.Timing()
		hold, window := t.HoldThreshold, t.DoubleTapWindow
		if *holdFlag > 0 {
			hold = *holdFlag
		}
		if *tapWindowFlag > 0 {
			window = *tapWindowFlag
		}
		if err := eng.UpdateTiming(hold, window); err != nil {
			log.Warnf("could not persist timing: %v", err)
		}
	}

	go beep.Init()

	tuiMu.Lock()
	tuiProgram = NewTUIProgram()
	tuiMu.Unlock()

	go func() {
		if _, err := tuiProgram.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
			os.Exit(1)
		}
		gracefulShutdown(eng)
	}()
	<-tuiReady

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown(eng)
	}()

	tuiSend(ModeLineMsg{Text: modeLineText(trans, *formatFlag)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	if permission.System().Status(permission.CapInputMonitoring) == permission.StatusDenied {
		tuiSend(PermissionMsg{Text: "⚠ no input device access, key timing degraded"})
		log.Warn("input monitoring denied, falling back to polling")
	}

	for range deviceSelectChan {
		handleDeviceSwitch(actx, captureConfig, holder, &selectedDevice)
	}
}

func handleDeviceSwitch(actx audio.Context, captureConfig audio.CaptureConfig, holder *captureHolder, selectedDevice **audio.DeviceInfo) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.ReleaseTerminal()
	}
	newDevice, err := selectDevice(actx)
	if p != nil {
		p.RestoreTerminal()
	}

	if err != nil {
		log.Warnf("device selection failed: %v", err)
		return
	}
	if newDevice == nil {
		return
	}

	name := newDevice.Name
	log.Info("device_switch: " + name)
	old := holder.get()
	newCapture, err := actx.NewCapture(newDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device reinit error: %v", err)
		return
	}
	holder.set(newCapture)
	if old != nil {
		old.Close()
	}
	*selectedDevice = newDevice
	tuiSend(DeviceLineMsg{Text: deviceLineText(newDevice)})
}
