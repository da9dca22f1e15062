package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// Opus always runs at 48 kHz; frames are 20 ms.
const (
	OpusSampleRate  = 48000
	opusFrameSizeMs = 20
	// OpusFrameSize is the number of samples per channel per 20 ms frame.
	OpusFrameSize = OpusSampleRate * opusFrameSizeMs / 1000 // 960

	// maxOpusPacket bounds a single encoded frame.
	maxOpusPacket = 4000
)

// OpusEncoder wraps a gopus encoder for one stream.
type OpusEncoder struct {
	enc      *gopus.Encoder
	channels int
}

// NewOpusEncoder creates an encoder for 48 kHz audio with the given channel
// count. A bitrate of zero keeps the libopus default.
func NewOpusEncoder(channels, bitrate int) (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(OpusSampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus encoder: %w", err)
	}
	if bitrate > 0 {
		enc.SetBitrate(bitrate)
	}
	return &OpusEncoder{enc: enc, channels: channels}, nil
}

// FrameSamples returns the number of interleaved samples in one full frame.
func (e *OpusEncoder) FrameSamples() int { return OpusFrameSize * e.channels }

// Encode encodes one 20 ms frame of interleaved samples. A short final frame
// is padded with silence.
func (e *OpusEncoder) Encode(frame []int16) ([]byte, error) {
	if len(frame) < e.FrameSamples() {
		padded := make([]int16, e.FrameSamples())
		copy(padded, frame)
		frame = padded
	}
	packet, err := e.enc.Encode(frame, OpusFrameSize, maxOpusPacket)
	if err != nil {
		return nil, fmt.Errorf("audio: opus encode: %w", err)
	}
	return packet, nil
}
