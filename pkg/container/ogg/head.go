package ogg

import "encoding/binary"

const (
	headMagic = "OpusHead"
	headSize  = 19

	// DefaultPreSkip is the encoder lookahead at 48 kHz written by Writer.
	DefaultPreSkip = 312
)

// OpusHead is the identification packet that opens every Opus stream. Only
// channel mapping family 0 (mono or stereo) is written; parsing accepts any
// family and ignores the mapping table.
type OpusHead struct {
	Version       byte
	Channels      byte
	PreSkip       uint16
	SampleRate    uint32
	OutputGain    int16
	MappingFamily byte
}

// Encode serializes the header for mapping family 0.
func (h *OpusHead) Encode() []byte {
	out := make([]byte, headSize)
	copy(out, headMagic)
	out[8] = h.Version
	out[9] = h.Channels
	binary.LittleEndian.PutUint16(out[10:12], h.PreSkip)
	binary.LittleEndian.PutUint32(out[12:16], h.SampleRate)
	binary.LittleEndian.PutUint16(out[16:18], uint16(h.OutputGain))
	out[18] = h.MappingFamily
	return out
}

// ParseOpusHead decodes an identification packet.
func ParseOpusHead(packet []byte) (*OpusHead, error) {
	if len(packet) < headSize || string(packet[:8]) != headMagic {
		return nil, ErrInvalidHeader
	}
	return &OpusHead{
		Version:       packet[8],
		Channels:      packet[9],
		PreSkip:       binary.LittleEndian.Uint16(packet[10:12]),
		SampleRate:    binary.LittleEndian.Uint32(packet[12:16]),
		OutputGain:    int16(binary.LittleEndian.Uint16(packet[16:18])),
		MappingFamily: packet[18],
	}, nil
}
