package ogg

import (
	"fmt"
	"io"
	"math/rand/v2"
)

// Vendor is written into the comment packet of streams created by Writer.
const Vendor = "stegovox"

// Writer produces a single logical Ogg/Opus stream: an OpusHead page, an
// OpusTags page and one audio packet per page after that.
type Writer struct {
	w          io.Writer
	serial     uint32
	seq        uint32
	granulePos uint64
	closed     bool
}

// NewWriter writes the two header pages for a mono or stereo stream and
// returns a Writer for the audio packets. inputRate is informational and is
// stored in the OpusHead; tags are added to the comment packet in order.
func NewWriter(w io.Writer, inputRate uint32, channels int, tags ...string) (*Writer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("ogg: writer: unsupported channel count %d", channels)
	}
	ow := &Writer{w: w, serial: rand.Uint32(), granulePos: DefaultPreSkip}

	head := &OpusHead{
		Version:    1,
		Channels:   byte(channels),
		PreSkip:    DefaultPreSkip,
		SampleRate: inputRate,
	}
	if err := ow.writePage(head.Encode(), FlagBOS, 0); err != nil {
		return nil, err
	}
	comments := &CommentHeader{Vendor: Vendor, Comments: tags}
	if err := ow.writePage(comments.Encode(), 0, 0); err != nil {
		return nil, err
	}
	return ow, nil
}

// WritePacket writes one Opus packet holding samples samples per channel at
// 48 kHz. Page granule positions include the pre-skip written in the head.
func (ow *Writer) WritePacket(packet []byte, samples int) error {
	if ow.closed {
		return fmt.Errorf("ogg: writer: write after close")
	}
	ow.granulePos += uint64(samples)
	return ow.writePage(packet, 0, ow.granulePos)
}

// Close writes an empty page flagged end-of-stream.
func (ow *Writer) Close() error {
	if ow.closed {
		return nil
	}
	ow.closed = true
	return ow.writePage(nil, FlagEOS, ow.granulePos)
}

// Serial returns the stream serial number.
func (ow *Writer) Serial() uint32 { return ow.serial }

func (ow *Writer) writePage(packet []byte, flags byte, granule uint64) error {
	segs := Lacing(len(packet))
	if len(segs) > MaxSegments {
		return fmt.Errorf("ogg: writer: packet of %d bytes does not fit one page", len(packet))
	}
	p := &Page{
		HeaderType:   flags,
		GranulePos:   granule,
		SerialNumber: ow.serial,
		PageSequence: ow.seq,
		Segments:     segs,
		Payload:      packet,
	}
	if _, err := ow.w.Write(p.Encode()); err != nil {
		return fmt.Errorf("ogg: writer: %w", err)
	}
	ow.seq++
	return nil
}
