package ogg

import (
	"encoding/binary"
	"fmt"
)

// Header type flags.
const (
	// FlagContinuation marks a page whose first packet began on an earlier page.
	FlagContinuation = 0x01
	// FlagBOS marks the first page of a logical bitstream.
	FlagBOS = 0x02
	// FlagEOS marks the last page of a logical bitstream.
	FlagEOS = 0x04
)

const (
	// HeaderSize is the fixed part of a page header, before the segment table.
	HeaderSize = 27

	// MaxSegments is the largest segment table a single page can carry.
	MaxSegments = 255

	// NoGranule is the granule position of a page on which no packet ends.
	NoGranule = ^uint64(0)

	capturePattern = "OggS"
	checksumOffset = 22
)

// Page is one framed unit of an Ogg bitstream.
type Page struct {
	Version      byte
	HeaderType   byte
	GranulePos   uint64
	SerialNumber uint32
	PageSequence uint32

	// Checksum is the value stored in the page as parsed. Encode ignores it
	// and always computes a fresh one.
	Checksum uint32

	// Segments is the lacing table. Each value is a segment length; a value
	// below 255 terminates the current packet.
	Segments []byte
	Payload  []byte
}

// IsBOS reports whether the page starts a logical bitstream.
func (p *Page) IsBOS() bool { return p.HeaderType&FlagBOS != 0 }

// IsEOS reports whether the page ends a logical bitstream.
func (p *Page) IsEOS() bool { return p.HeaderType&FlagEOS != 0 }

// IsContinuation reports whether the page continues a packet from the
// previous page.
func (p *Page) IsContinuation() bool { return p.HeaderType&FlagContinuation != 0 }

// Size returns the encoded length of the page in bytes.
func (p *Page) Size() int { return HeaderSize + len(p.Segments) + len(p.Payload) }

// Encode serializes the page and writes a freshly computed checksum into
// bytes 22..25 (little-endian).
func (p *Page) Encode() []byte {
	out := make([]byte, p.Size())
	copy(out[0:4], capturePattern)
	out[4] = p.Version
	out[5] = p.HeaderType
	binary.LittleEndian.PutUint64(out[6:14], p.GranulePos)
	binary.LittleEndian.PutUint32(out[14:18], p.SerialNumber)
	binary.LittleEndian.PutUint32(out[18:22], p.PageSequence)
	out[26] = byte(len(p.Segments))
	copy(out[HeaderSize:], p.Segments)
	copy(out[HeaderSize+len(p.Segments):], p.Payload)

	binary.LittleEndian.PutUint32(out[checksumOffset:checksumOffset+4], Checksum(out))
	return out
}

// ParsePage decodes the page at the start of data and returns it together with
// the number of bytes it occupies. The stored checksum is recorded but not
// verified; use VerifyChecksum for that.
func ParsePage(data []byte) (*Page, int, error) {
	if len(data) < HeaderSize || string(data[0:4]) != capturePattern {
		return nil, 0, ErrInvalidPage
	}
	nseg := int(data[26])
	if len(data) < HeaderSize+nseg {
		return nil, 0, fmt.Errorf("%w: segment table truncated", ErrInvalidPage)
	}
	segments := data[HeaderSize : HeaderSize+nseg]
	size := HeaderSize + nseg + lacedLength(segments)
	if len(data) < size {
		return nil, 0, fmt.Errorf("%w: payload truncated", ErrInvalidPage)
	}

	p := &Page{
		Version:      data[4],
		HeaderType:   data[5],
		GranulePos:   binary.LittleEndian.Uint64(data[6:14]),
		SerialNumber: binary.LittleEndian.Uint32(data[14:18]),
		PageSequence: binary.LittleEndian.Uint32(data[18:22]),
		Checksum:     binary.LittleEndian.Uint32(data[22:26]),
		Segments:     append([]byte(nil), segments...),
		Payload:      append([]byte(nil), data[HeaderSize+nseg:size]...),
	}
	return p, size, nil
}

// VerifyChecksum reports whether the complete page at the start of data
// carries the checksum its contents hash to.
func VerifyChecksum(data []byte) bool {
	p, n, err := ParsePage(data)
	if err != nil {
		return false
	}
	crc := updateChecksum(0, data[:checksumOffset])
	crc = updateChecksum(crc, []byte{0, 0, 0, 0})
	crc = updateChecksum(crc, data[checksumOffset+4:n])
	return crc == p.Checksum
}

// Lacing returns the segment table for a packet of n bytes: one 255 for every
// full 255-byte run followed by the remainder. When n is a multiple of 255
// (including zero) the remainder is an explicit 0 that terminates the packet.
func Lacing(n int) []byte {
	full := n / 255
	segs := make([]byte, full+1)
	for i := range full {
		segs[i] = 255
	}
	segs[full] = byte(n % 255)
	return segs
}

// PacketLengths splits a segment table into the lengths of the packets that
// end on the page. A trailing run of 255 values belongs to a packet continued
// on the next page and is not reported.
func PacketLengths(segments []byte) []int {
	var (
		lengths []int
		cur     int
	)
	for _, s := range segments {
		cur += int(s)
		if s < 255 {
			lengths = append(lengths, cur)
			cur = 0
		}
	}
	return lengths
}

func lacedLength(segments []byte) int {
	n := 0
	for _, s := range segments {
		n += int(s)
	}
	return n
}
