// Package beep plays short audio cues marking recording state changes.
package beep

// Cue names a sound. Start and End bracket a recording, Cancel marks a
// session discarded without transcription, Error marks a failed one.
type Cue int

const (
	Start Cue = iota
	End
	Cancel
	Error
)

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Cancel cue: low single tick
	cancelFreq   = 600
	cancelVolume = 0.4
	cancelDecay  = 50

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)
