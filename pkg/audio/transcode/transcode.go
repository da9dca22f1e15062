// Package transcode turns WAV files into Ogg/Opus streams so that WAV input
// can carry its payload in the Opus comment header instead of a RIFF chunk.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/stegovox/pkg/audio"
	"github.com/MrWong99/stegovox/pkg/container/ogg"
)

// Options tune the Opus encoder.
type Options struct {
	// Bitrate in bits per second. Zero keeps the libopus default.
	Bitrate int

	// Tags are extra KEY=value comments for the OpusTags packet.
	Tags []string
}

// WAVToOpus decodes a PCM WAV file, resamples it to 48 kHz and encodes it as
// an Ogg/Opus stream with the same channel count. The context is checked
// between frames.
func WAVToOpus(ctx context.Context, wavData []byte, opts Options) ([]byte, error) {
	pcm, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	inputRate := pcm.SampleRate

	pcm = audio.Resample(pcm, audio.OpusSampleRate)

	enc, err := audio.NewOpusEncoder(pcm.Channels, opts.Bitrate)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}

	var buf bytes.Buffer
	w, err := ogg.NewWriter(&buf, uint32(inputRate), pcm.Channels, opts.Tags...)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}

	frame := enc.FrameSamples()
	frames := 0
	for off := 0; off < len(pcm.Samples); off += frame {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transcode: %w", err)
		}
		packet, err := enc.Encode(pcm.Samples[off:min(off+frame, len(pcm.Samples))])
		if err != nil {
			return nil, fmt.Errorf("transcode: frame %d: %w", frames, err)
		}
		if err := w.WritePacket(packet, audio.OpusFrameSize); err != nil {
			return nil, fmt.Errorf("transcode: %w", err)
		}
		frames++
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}

	slog.Debug("transcode: wav to opus",
		"input_rate", inputRate,
		"channels", pcm.Channels,
		"frames", frames,
		"duration", pcm.Duration(),
		"out_bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}
