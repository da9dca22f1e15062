package wav

import (
	"bytes"
	"fmt"
	"time"

	gowav "github.com/go-audio/wav"
)

// Info describes the audio format of a WAV file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Format is the WAVE format tag, 1 for integer PCM.
	Format   int
	Duration time.Duration
}

// ReadInfo decodes the fmt chunk of a WAV file.
func ReadInfo(data []byte) (Info, error) {
	if err := checkMagic(data); err != nil {
		return Info{}, fmt.Errorf("wav: read info: %w", err)
	}
	d := gowav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Info{}, fmt.Errorf("wav: read info: %w", err)
	}
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("wav: read info: %w: missing or invalid fmt chunk", ErrInvalidMagic)
	}
	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Format:     int(d.WavAudioFormat),
	}
	if dur, err := d.Duration(); err == nil {
		info.Duration = dur
	}
	return info, nil
}
