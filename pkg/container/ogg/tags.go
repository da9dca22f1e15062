package ogg

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const tagsMagic = "OpusTags"

// CommentHeader is the Opus comment packet ("OpusTags"):
//
//	"OpusTags" | vendor_len u32le | vendor | count u32le | {len u32le | "KEY=value"}*
//
// Comments keep their original order and may repeat keys.
type CommentHeader struct {
	Vendor   string
	Comments []string

	// Extra holds any bytes following the comment list. They are written back
	// unchanged by Encode.
	Extra []byte
}

// ParseCommentHeader decodes an Opus comment packet.
func ParseCommentHeader(packet []byte) (*CommentHeader, error) {
	if len(packet) < len(tagsMagic) || string(packet[:len(tagsMagic)]) != tagsMagic {
		return nil, fmt.Errorf("%w: comment packet does not start with %q", ErrInvalidMagic, tagsMagic)
	}
	r := reader{buf: packet, off: len(tagsMagic)}

	vendor, err := r.lengthPrefixed()
	if err != nil {
		return nil, fmt.Errorf("%w: vendor: %w", ErrMalformedTags, err)
	}
	count, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: comment count: %w", ErrMalformedTags, err)
	}
	// Every comment needs at least its length field.
	if int64(count)*4 > int64(len(packet)-r.off) {
		return nil, fmt.Errorf("%w: %d comments do not fit in %d bytes", ErrMalformedTags, count, len(packet)-r.off)
	}

	h := &CommentHeader{
		Vendor:   string(vendor),
		Comments: make([]string, 0, count),
	}
	for i := range count {
		c, err := r.lengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("%w: comment %d: %w", ErrMalformedTags, i, err)
		}
		h.Comments = append(h.Comments, string(c))
	}
	if r.off < len(packet) {
		h.Extra = append([]byte(nil), packet[r.off:]...)
	}
	return h, nil
}

// Encode serializes the comment packet.
func (h *CommentHeader) Encode() []byte {
	size := len(tagsMagic) + 4 + len(h.Vendor) + 4 + len(h.Extra)
	for _, c := range h.Comments {
		size += 4 + len(c)
	}
	out := make([]byte, 0, size)
	out = append(out, tagsMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(h.Vendor)))
	out = append(out, h.Vendor...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(h.Comments)))
	for _, c := range h.Comments {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(c)))
		out = append(out, c...)
	}
	return append(out, h.Extra...)
}

// Add appends a KEY=value comment after the existing ones.
func (h *CommentHeader) Add(key, value string) {
	h.Comments = append(h.Comments, key+"="+value)
}

// Lookup returns the value of the first comment with the given key. Keys are
// compared exactly.
func (h *CommentHeader) Lookup(key string) (string, bool) {
	prefix := key + "="
	for _, c := range h.Comments {
		if v, ok := strings.CutPrefix(c, prefix); ok {
			return v, true
		}
	}
	return "", false
}

// Remove deletes every comment with the given key and returns how many were
// removed.
func (h *CommentHeader) Remove(key string) int {
	prefix := key + "="
	kept := make([]string, 0, len(h.Comments))
	for _, c := range h.Comments {
		if !strings.HasPrefix(c, prefix) {
			kept = append(kept, c)
		}
	}
	removed := len(h.Comments) - len(kept)
	h.Comments = kept
	return removed
}

// Keys returns the key of every comment in order. Comments without '=' are
// reported whole.
func (h *CommentHeader) Keys() []string {
	keys := make([]string, len(h.Comments))
	for i, c := range h.Comments {
		k, _, _ := strings.Cut(c, "=")
		keys[i] = k
	}
	return keys
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) uint32() (uint32, error) {
	if len(r.buf)-r.off < 4 {
		return 0, fmt.Errorf("need 4 bytes at offset %d, have %d", r.off, len(r.buf)-r.off)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.buf)-r.off) {
		return nil, fmt.Errorf("length %d at offset %d exceeds packet", n, r.off-4)
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}
