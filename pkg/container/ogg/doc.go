// Package ogg reads and rewrites the comment packet of Ogg/Opus streams.
//
// An Ogg stream is a sequence of pages:
//
//	0      4     5      6            14       18       22        26     27
//	+------+-----+------+------------+--------+--------+---------+------+------------+---------+
//	| OggS | ver | type | granule    | serial | seq    | crc     | nseg | lacing...  | payload |
//	+------+-----+------+------------+--------+--------+---------+------+------------+---------+
//
// All integers are little-endian. The lacing table holds nseg segment lengths
// whose sum is the payload length. An Opus stream starts with the OpusHead
// packet on page 0 followed by the OpusTags comment packet, which starts on
// page 1. Inject adds a STEGO=<value> comment to that packet, Extract reads
// it back and RemoveTag deletes it again.
//
// Only the first logical stream is handled. Files whose second page starts a
// different stream (multiplexed or chained Ogg) are rejected with
// ErrUnsupportedLayout rather than rewritten at the wrong place.
package ogg
