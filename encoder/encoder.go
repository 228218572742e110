// Package encoder turns captured PCM16 into the upload formats the
// transcription APIs accept.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
