package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"murmur/audio"
)

type pickerAction int

const (
	pickerNoop pickerAction = iota
	pickerUp
	pickerDown
	pickerConfirm
	pickerAbort
)

var pickerCursorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("6")).
	Bold(true)

// selectDevice prompts on the controlling terminal for a capture
// device. With exactly one device it short-circuits.
func selectDevice(ctx audio.Context) (*audio.DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		fmt.Printf("Using device: %s\n", devices[0].Name)
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, prev)

	cursor := 0
	for {
		drawPicker(devices, cursor)

		action, err := readPickerKey()
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch action {
		case pickerUp:
			if cursor > 0 {
				cursor--
			}
		case pickerDown:
			if cursor < len(devices)-1 {
				cursor++
			}
		case pickerConfirm:
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case pickerAbort:
			fmt.Print("\r\n")
			term.Restore(fd, prev)
			os.Exit(0)
		}

		// Rewind over the rendered list to redraw in place.
		fmt.Printf("\x1b[%dA", len(devices)+2)
	}
}

func drawPicker(devices []audio.DeviceInfo, cursor int) {
	fmt.Print("\r\x1b[J")
	fmt.Print("Select input device (↑/↓, Enter to confirm):\r\n\r\n")
	for i, d := range devices {
		if i == cursor {
			fmt.Printf("  %s\r\n", pickerCursorStyle.Render("▶ "+d.Name))
		} else {
			fmt.Printf("    %s\r\n", d.Name)
		}
	}
}

// readPickerKey blocks for one keypress and maps it to a picker
// action. Arrow keys arrive as a three-byte CSI sequence in raw mode.
func readPickerKey() (pickerAction, error) {
	buf := make([]byte, 3)
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return pickerNoop, err
	}
	if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A':
			return pickerUp, nil
		case 'B':
			return pickerDown, nil
		}
		return pickerNoop, nil
	}
	switch buf[0] {
	case '\r':
		return pickerConfirm, nil
	case 0x03: // Ctrl+C
		return pickerAbort, nil
	case 'k':
		return pickerUp, nil
	case 'j':
		return pickerDown, nil
	}
	return pickerNoop, nil
}
