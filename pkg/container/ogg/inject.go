package ogg

import (
	"errors"
	"fmt"
)

// TagKey is the comment key that carries the embedded payload.
const TagKey = "STEGO"

// tagsRegion describes where the comment packet lives in a container.
type tagsRegion struct {
	spans []Span
	// The comment packet starts on spans[first] (always page 1) and ends on
	// spans[last].
	first, last int
	head        *Page // page that starts the packet
	tail        *Page // page that ends the packet
	packet      []byte
}

// Inject sets the STEGO comment of the Opus comment packet on page 1 to
// payload, dropping any earlier STEGO comments and appending the new one
// last, and returns the rewritten container. The comment page is re-laced, split
// over several pages when the packet no longer fits in 255 segments, and
// checksummed again; all other bytes are copied unchanged.
func Inject(data []byte, payload string) ([]byte, error) {
	out, err := rewriteTags(data, func(h *CommentHeader) {
		h.Remove(TagKey)
		h.Add(TagKey, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("ogg: inject: %w", err)
	}
	return out, nil
}

// Extract returns the value of the first STEGO comment on the comment page.
// It reports false when there is no comment page, the page is not an Opus
// comment packet or no such comment exists.
func Extract(data []byte) (string, bool) {
	h, err := ReadTags(data)
	if err != nil {
		return "", false
	}
	return h.Lookup(TagKey)
}

// RemoveTag deletes every STEGO comment and returns the rewritten container
// along with the number of comments removed.
func RemoveTag(data []byte) ([]byte, int, error) {
	removed := 0
	out, err := rewriteTags(data, func(h *CommentHeader) {
		removed = h.Remove(TagKey)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ogg: remove tag: %w", err)
	}
	return out, removed, nil
}

// ReadTags parses the comment packet of the first logical stream.
func ReadTags(data []byte) (*CommentHeader, error) {
	r, err := locateTags(data)
	if err != nil {
		return nil, err
	}
	return ParseCommentHeader(r.packet)
}

// ReadHead parses the identification packet on page 0.
func ReadHead(data []byte) (*OpusHead, error) {
	spans := Pages(data)
	if len(spans) == 0 {
		return nil, ErrInvalidPage
	}
	p, _, err := ParsePage(data[spans[0].Offset:])
	if err != nil {
		return nil, err
	}
	return ParseOpusHead(p.Payload)
}

func rewriteTags(data []byte, edit func(*CommentHeader)) ([]byte, error) {
	r, err := locateTags(data)
	if err != nil {
		return nil, err
	}
	h, err := ParseCommentHeader(r.packet)
	if err != nil {
		return nil, err
	}
	edit(h)
	packet := h.Encode()

	pages := framePacket(r.head, r.tail, packet)
	start, end := r.spans[r.first].Offset, r.spans[r.last].End()

	out := make([]byte, 0, len(data)+len(packet)+len(pages)*(HeaderSize+MaxSegments))
	out = append(out, data[:start]...)
	for _, p := range pages {
		out = append(out, p.Encode()...)
	}

	shift := len(pages) - (r.last - r.first + 1)
	if shift == 0 {
		return append(out, data[end:]...), nil
	}
	return renumber(out, data, r.spans[r.last+1:], end, r.head.SerialNumber, shift)
}

// renumber appends the remainder of data starting at end, shifting the
// sequence number of every page of the given stream by shift and checksumming
// those pages again. Bytes between pages are copied unchanged.
func renumber(out, data []byte, rest []Span, end int, serial uint32, shift int) ([]byte, error) {
	for _, s := range rest {
		out = append(out, data[end:s.Offset]...)
		end = s.End()
		p, _, err := ParsePage(data[s.Offset:end])
		if err != nil {
			return nil, err
		}
		if p.SerialNumber != serial {
			out = append(out, data[s.Offset:end]...)
			continue
		}
		p.PageSequence = uint32(int64(p.PageSequence) + int64(shift))
		out = append(out, p.Encode()...)
	}
	return append(out, data[end:]...), nil
}

// locateTags finds the comment packet. It must start on page 1, belong to the
// same logical stream as page 0 and be the only packet on the pages it spans.
func locateTags(data []byte) (*tagsRegion, error) {
	spans := Pages(data)
	if len(spans) < 2 {
		return nil, ErrTagsPageNotFound
	}
	first, _, err := ParsePage(data[spans[0].Offset:])
	if err != nil {
		return nil, err
	}
	head, _, err := ParsePage(data[spans[1].Offset:])
	if err != nil {
		return nil, err
	}
	switch {
	case head.IsBOS():
		return nil, fmt.Errorf("%w: page 1 starts a new logical stream", ErrUnsupportedLayout)
	case head.SerialNumber != first.SerialNumber:
		return nil, fmt.Errorf("%w: page 1 belongs to stream %08x, page 0 to %08x", ErrUnsupportedLayout, head.SerialNumber, first.SerialNumber)
	case head.IsContinuation():
		return nil, fmt.Errorf("%w: page 1 continues an earlier packet", ErrUnsupportedLayout)
	}

	r := &tagsRegion{spans: spans, first: 1, last: 1, head: head}
	page := head
	for {
		done, err := appendPacket(&r.packet, page.Segments, page.Payload)
		if err != nil {
			return nil, err
		}
		if done {
			r.tail = page
			return r, nil
		}
		r.last++
		if r.last >= len(spans) {
			return nil, fmt.Errorf("%w: comment packet is truncated", ErrTagsPageNotFound)
		}
		page, _, err = ParsePage(data[spans[r.last].Offset:])
		if err != nil {
			return nil, err
		}
		if page.SerialNumber != head.SerialNumber || !page.IsContinuation() {
			return nil, fmt.Errorf("%w: comment packet is interrupted at page %d", ErrUnsupportedLayout, r.last)
		}
	}
}

var errTrailingPacket = errors.New("another packet follows the comment packet on its last page")

// appendPacket adds one page worth of the comment packet to dst. It reports
// whether the packet ended on this page.
func appendPacket(dst *[]byte, segments, payload []byte) (bool, error) {
	n := 0
	for i, s := range segments {
		n += int(s)
		if s < 255 {
			if i != len(segments)-1 {
				return false, fmt.Errorf("%w: %w", ErrUnsupportedLayout, errTrailingPacket)
			}
			*dst = append(*dst, payload[:n]...)
			return true, nil
		}
	}
	*dst = append(*dst, payload...)
	return false, nil
}

// framePacket lays packet out over as many pages as its lacing needs. The
// first page takes the identity of head; pages after it are continuations
// with consecutive sequence numbers. The last page carries the granule
// position and EOS flag of tail; earlier ones carry NoGranule.
func framePacket(head, tail *Page, packet []byte) []*Page {
	segs := Lacing(len(packet))
	count := (len(segs) + MaxSegments - 1) / MaxSegments
	pages := make([]*Page, 0, count)

	off := 0
	for i := range count {
		table := segs[i*MaxSegments : min((i+1)*MaxSegments, len(segs))]
		n := lacedLength(table)
		p := &Page{
			Version:      head.Version,
			HeaderType:   head.HeaderType &^ (FlagContinuation | FlagEOS),
			GranulePos:   NoGranule,
			SerialNumber: head.SerialNumber,
			PageSequence: head.PageSequence + uint32(i),
			Segments:     table,
			Payload:      packet[off : off+n],
		}
		if i > 0 {
			p.HeaderType |= FlagContinuation
		}
		if i == count-1 {
			p.GranulePos = tail.GranulePos
			p.HeaderType |= tail.HeaderType & FlagEOS
		}
		off += n
		pages = append(pages, p)
	}
	return pages
}
