package ogg

// Span locates one complete page inside a container buffer.
type Span struct {
	// Offset is the position of the capture pattern.
	Offset int
	// Segments is the length of the segment table.
	Segments int
	// PayloadLen is the sum of the segment table.
	PayloadLen int
}

// End returns the offset just past the page.
func (s Span) End() int { return s.Offset + HeaderSize + s.Segments + s.PayloadLen }

// Pages lists the complete pages of data in encounter order.
//
// At each offset the scanner tests for the capture pattern; on a match it
// reads the segment count at byte 26, sums the segment table and jumps past
// the page, otherwise it advances by a single byte. A page running past the
// end of the buffer ends the scan.
func Pages(data []byte) []Span {
	var spans []Span
	for off := 0; off+HeaderSize <= len(data); {
		s, ok := spanAt(data, off)
		if !ok {
			if string(data[off:off+4]) == capturePattern {
				break
			}
			off++
			continue
		}
		spans = append(spans, s)
		off = s.End()
	}
	return spans
}

// spanAt measures the page at off. It reports false when there is no capture
// pattern at off or the page is incomplete.
func spanAt(data []byte, off int) (Span, bool) {
	if string(data[off:off+4]) != capturePattern {
		return Span{}, false
	}
	nseg := int(data[off+26])
	tableEnd := off + HeaderSize + nseg
	if tableEnd > len(data) {
		return Span{}, false
	}
	s := Span{
		Offset:     off,
		Segments:   nseg,
		PayloadLen: lacedLength(data[off+HeaderSize : tableEnd]),
	}
	if s.End() > len(data) {
		return Span{}, false
	}
	return s, true
}
