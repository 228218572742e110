// Package permission gates access to the elevated input-monitoring
// capability. Denial is never fatal: callers degrade to passive
// observation.
package permission

type Capability int

const (
	// CapInputMonitoring covers reading raw input events at the OS
	// layer (the low-latency channel).
	CapInputMonitoring Capability = iota
)

type Status int

const (
	StatusUnknown Status = iota
	StatusGranted
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusGranted:
		return "granted"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Service reports and requests capabilities. Request must not block:
// the callback fires on an arbitrary goroutine once the status is
// resolved.
type Service interface {
	Status(c Capability) Status
	Request(c Capability, resolved func(Status))
}

// System returns the platform permission service.
func System() Service {
	return systemService{}
}
