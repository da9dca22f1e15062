package stego

import (
	"bytes"
	"fmt"
)

// Format identifies a supported container.
type Format int

const (
	FormatUnknown Format = iota
	FormatOgg
	FormatWav
)

// String returns a short lower-case name for the format.
func (f Format) String() string {
	switch f {
	case FormatOgg:
		return "ogg"
	case FormatWav:
		return "wav"
	default:
		return "unknown"
	}
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText parses a name written by MarshalText.
func (f *Format) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ogg":
		*f = FormatOgg
	case "wav":
		*f = FormatWav
	case "unknown":
		*f = FormatUnknown
	default:
		return fmt.Errorf("stego: unknown format %q", text)
	}
	return nil
}

// MIMEType returns the media type used when serving a container of this
// format.
func (f Format) MIMEType() string {
	switch f {
	case FormatOgg:
		return "audio/ogg"
	case FormatWav:
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file name extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatOgg:
		return ".ogg"
	case FormatWav:
		return ".wav"
	default:
		return ".bin"
	}
}

// DetectFormat classifies a buffer by its leading magic bytes.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(data, []byte("RIFF")):
		return FormatWav
	default:
		return FormatUnknown
	}
}
