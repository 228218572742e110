//go:build linux

package keywatch

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocRead = 2
)

// keyStateBytes covers KEY_MAX (0x2ff) bits.
const keyStateBytes = 0x2ff/8 + 1

// eviocgkey = EVIOCGKEY(len) = _IOC(_IOC_READ, 'E', 0x18, len)
func eviocgkey(size uint32) uintptr {
	return uintptr(uint32(iocRead)<<iocDirShift | uint32('E')<<iocTypeShift | 0x18<<iocNRShift | size<<iocSizeShift)
}

// evdevProbe reads the kernel's global key bitmap. It holds its device
// fds open across calls and refreshes them when one goes stale.
type evdevProbe struct {
	code uint16

	mu    sync.Mutex
	files []*os.File
}

func NewProbe(code uint16) Probe {
	return &evdevProbe{code: code}
}

func (p *evdevProbe) Down() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.files) == 0 {
		if err := p.open(); err != nil {
			return false, err
		}
	}

	var state [keyStateBytes]byte
	down := false
	live := p.files[:0]
	for _, f := range p.files {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(),
			eviocgkey(keyStateBytes), uintptr(unsafe.Pointer(&state[0])))
		if errno != 0 {
			f.Close()
			continue
		}
		live = append(live, f)
		if state[p.code/8]&(1<<(p.code%8)) != 0 {
			down = true
		}
	}
	p.files = live
	if len(p.files) == 0 {
		return false, fmt.Errorf("key state probe: all devices stale")
	}
	return down, nil
}

func (p *evdevProbe) open() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("key state probe: %w", err)
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			p.files = append(p.files, f)
		}
	}
	if len(p.files) == 0 {
		return fmt.Errorf("key state probe: no readable keyboard device")
	}
	return nil
}

func (p *evdevProbe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.files {
		f.Close()
	}
	p.files = nil
}
