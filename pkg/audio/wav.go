package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
)

// ErrUnsupportedWAV is returned for WAV files the transcoder cannot read:
// non-PCM encodings or more than two channels.
var ErrUnsupportedWAV = errors.New("audio: unsupported WAV file")

// DecodeWAV reads the PCM samples of an integer PCM WAV file and returns them
// as 16-bit samples.
func DecodeWAV(data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return PCM{}, fmt.Errorf("audio: decode wav: %w", err)
		}
		return PCM{}, fmt.Errorf("audio: decode wav: %w: invalid header", ErrUnsupportedWAV)
	}
	if d.WavAudioFormat != 1 {
		return PCM{}, fmt.Errorf("audio: decode wav: %w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	if d.NumChans > 2 {
		return PCM{}, fmt.Errorf("audio: decode wav: %w: %d channels", ErrUnsupportedWAV, d.NumChans)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode wav: %w", err)
	}

	shift := buf.SourceBitDepth - 16
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case buf.SourceBitDepth == 8:
			// 8-bit WAV samples are unsigned.
			out[i] = int16((v - 128) << 8)
		case shift > 0:
			out[i] = int16(v >> shift)
		default:
			out[i] = int16(v)
		}
	}
	return PCM{
		Samples:    out,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}
