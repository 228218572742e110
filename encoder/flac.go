package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// Flac streams PCM16 samples into an in-memory FLAC file. Callers feed
// samples in whatever chunk sizes the capture layer delivers; full
// blocks are flushed as verbatim frames as they fill up.
type Flac struct {
	buf   bytes.Buffer
	enc   *flac.Encoder
	tail  []int16 // samples short of a full block
	count uint64
}

func NewFlac() (*Flac, error) {
	f := &Flac{}
	enc, err := flac.NewEncoder(&f.buf, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	f.enc = enc
	return f, nil
}

// Add appends samples, flushing every complete block.
func (f *Flac) Add(samples []int16) error {
	f.tail = append(f.tail, samples...)
	for len(f.tail) >= BlockSize {
		if err := f.writeBlock(f.tail[:BlockSize]); err != nil {
			return err
		}
		f.tail = f.tail[BlockSize:]
	}
	return nil
}

func (f *Flac) writeBlock(block []int16) error {
	widened := make([]int32, len(block))
	for i, s := range block {
		widened[i] = int32(s)
	}
	fr := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   widened,
			NSamples:  len(block),
		}},
	}
	if err := f.enc.WriteFrame(fr); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	f.count += uint64(len(block))
	return nil
}

// Finish flushes any short trailing block, closes the stream and
// returns the complete file.
func (f *Flac) Finish() ([]byte, error) {
	if len(f.tail) > 0 {
		if err := f.writeBlock(f.tail); err != nil {
			return nil, err
		}
		f.tail = nil
	}
	if err := f.enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac stream: %w", err)
	}
	return f.buf.Bytes(), nil
}

// Samples reports how many PCM samples have been written out so far.
func (f *Flac) Samples() uint64 {
	return f.count
}
