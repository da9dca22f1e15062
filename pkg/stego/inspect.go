package stego

import (
	"fmt"

	"github.com/MrWong99/stegovox/pkg/container/ogg"
	"github.com/MrWong99/stegovox/pkg/container/wav"
)

// Report summarizes a container without decrypting anything.
type Report struct {
	Format Format `json:"format"`
	Size   int    `json:"size"`

	SampleRate int `json:"sample_rate,omitempty"`
	Channels   int `json:"channels,omitempty"`
	BitDepth   int `json:"bit_depth,omitempty"`

	// Ogg only.
	Pages       int      `json:"pages,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
	CommentKeys []string `json:"comment_keys,omitempty"`

	// WAV only.
	Chunks []string `json:"chunks,omitempty"`

	HasPayload bool `json:"has_payload"`
	// PayloadBytes is the size of the sealed payload, not of the message.
	PayloadBytes int `json:"payload_bytes,omitempty"`
}

// Inspect describes container. It fails only for unsupported formats and for
// containers too damaged to list their pages or chunks.
func Inspect(container []byte) (Report, error) {
	r := Report{Format: DetectFormat(container), Size: len(container)}
	switch r.Format {
	case FormatOgg:
		r.Pages = len(ogg.Pages(container))
		if head, err := ogg.ReadHead(container); err == nil {
			r.SampleRate = int(head.SampleRate)
			r.Channels = int(head.Channels)
		}
		if tags, err := ogg.ReadTags(container); err == nil {
			r.Vendor = tags.Vendor
			r.CommentKeys = tags.Keys()
		}
	case FormatWav:
		chunks, err := wav.Chunks(container)
		if err != nil {
			return r, fmt.Errorf("stego: inspect: %w", err)
		}
		for _, c := range chunks {
			r.Chunks = append(r.Chunks, c.ID)
		}
		if info, err := wav.ReadInfo(container); err == nil {
			r.SampleRate = info.SampleRate
			r.Channels = info.Channels
			r.BitDepth = info.BitDepth
		}
	default:
		return r, ErrUnsupportedFormat
	}

	if payload, err := defaultCodec.extract(container); err == nil {
		r.HasPayload = true
		r.PayloadBytes = len(payload)
	}
	return r, nil
}
