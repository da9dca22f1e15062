// Package audio holds the PCM plumbing behind the WAV to Opus transcoder:
// WAV decoding, resampling and Opus frame encoding.
package audio

import "time"

// PCM is a block of interleaved 16-bit samples.
type PCM struct {
	Samples []int16

	// SampleRate in Hz.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int
}

// Frames returns the number of samples per channel.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length of p.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}
