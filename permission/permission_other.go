//go:build !linux

package permission

// Non-Linux platforms register hotkeys through the system facility,
// which needs no separate grant from us; the OS prompts on first use.
type systemService struct{}

func (systemService) Status(c Capability) Status {
	if c != CapInputMonitoring {
		return StatusUnknown
	}
	return StatusGranted
}

func (s systemService) Request(c Capability, resolved func(Status)) {
	go resolved(s.Status(c))
}
