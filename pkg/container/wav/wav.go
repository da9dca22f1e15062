// Package wav embeds payloads in WAV files as an extra RIFF chunk.
//
// A WAV file is a RIFF container: "RIFF", a little-endian uint32 size
// covering everything after the first 8 bytes, "WAVE", then a list of chunks.
// Each chunk is a 4-byte id, a little-endian uint32 size and the data, plus one
// pad byte when the size is odd. Embed appends a chunk with id "STEK" holding
// the payload bytes verbatim; players skip chunks they do not know.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/MrWong99/stegovox/pkg/container"
)

// ChunkID is the id of the chunk that carries the payload.
const ChunkID = "STEK"

const (
	headerSize      = 12
	chunkHeaderSize = 8
)

// ErrTruncatedChunk is returned when a payload chunk declares more bytes than
// the file holds.
var ErrTruncatedChunk = errors.New("wav: chunk extends past end of file")

// ErrInvalidMagic is the shared container sentinel.
var ErrInvalidMagic = container.ErrInvalidMagic

// Chunk is one RIFF chunk found by Chunks.
type Chunk struct {
	ID string
	// Size is the declared data size, without the pad byte.
	Size uint32
	// Offset is the position of the chunk id.
	Offset int
}

// DataOffset returns the position of the chunk data.
func (c Chunk) DataOffset() int { return c.Offset + chunkHeaderSize }

// next returns the offset of the chunk after c.
func (c Chunk) next() int { return c.Offset + chunkHeaderSize + int(c.Size) + int(c.Size%2) }

// Embed appends a STEK chunk holding payload and returns the new file. An odd
// sized payload is followed by a zero pad byte so that the chunk list stays
// word aligned. The RIFF size field grows by the bytes appended.
func Embed(data, payload []byte) ([]byte, error) {
	if err := checkMagic(data); err != nil {
		return nil, fmt.Errorf("wav: embed: %w", err)
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("wav: embed: payload of %d bytes exceeds chunk size limit", len(payload))
	}

	// A file that ends on an unpadded odd chunk gets its pad byte first.
	lead := len(data) % 2
	pad := len(payload) % 2
	added := lead + chunkHeaderSize + len(payload) + pad

	out := make([]byte, 0, len(data)+added)
	out = append(out, data...)
	out = append(out, make([]byte, lead)...)
	out = append(out, ChunkID...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = append(out, make([]byte, pad)...)

	size := binary.LittleEndian.Uint32(out[4:8])
	binary.LittleEndian.PutUint32(out[4:8], size+uint32(added))
	return out, nil
}

// Extract returns a copy of the data of the first STEK chunk. It reports
// false when the chunk list ends without one.
func Extract(data []byte) ([]byte, bool, error) {
	if err := checkMagic(data); err != nil {
		return nil, false, fmt.Errorf("wav: extract: %w", err)
	}
	for off := headerSize; off+chunkHeaderSize <= len(data); {
		c := chunkAt(data, off)
		if c.ID == ChunkID {
			end := uint64(c.DataOffset()) + uint64(c.Size)
			if end > uint64(len(data)) {
				return nil, false, fmt.Errorf("wav: extract: %w: %s declares %d bytes, %d remain",
					ErrTruncatedChunk, ChunkID, c.Size, len(data)-c.DataOffset())
			}
			return bytes.Clone(data[c.DataOffset():end]), true, nil
		}
		off = c.next()
	}
	return nil, false, nil
}

// Chunks lists the chunks of a WAV file in order. A last chunk running past
// the end of the buffer is listed with its declared size.
func Chunks(data []byte) ([]Chunk, error) {
	if err := checkMagic(data); err != nil {
		return nil, fmt.Errorf("wav: chunks: %w", err)
	}
	var chunks []Chunk
	for off := headerSize; off+chunkHeaderSize <= len(data); {
		c := chunkAt(data, off)
		chunks = append(chunks, c)
		off = c.next()
	}
	return chunks, nil
}

// Strip removes every STEK chunk and returns the new file with the RIFF size
// reduced accordingly, along with the number of chunks removed.
func Strip(data []byte) ([]byte, int, error) {
	chunks, err := Chunks(data)
	if err != nil {
		return nil, 0, fmt.Errorf("wav: strip: %w", err)
	}
	out := make([]byte, 0, len(data))
	out = append(out, data[:headerSize]...)
	removed, dropped := 0, 0
	for _, c := range chunks {
		end := min(c.next(), len(data))
		if c.ID == ChunkID {
			removed++
			dropped += end - c.Offset
			continue
		}
		out = append(out, data[c.Offset:end]...)
	}
	// Trailing bytes too short for a chunk header.
	if len(chunks) > 0 {
		if last := chunks[len(chunks)-1].next(); last < len(data) {
			out = append(out, data[last:]...)
		}
	} else {
		out = append(out, data[headerSize:]...)
	}

	size := binary.LittleEndian.Uint32(out[4:8])
	binary.LittleEndian.PutUint32(out[4:8], size-uint32(dropped))
	return out, removed, nil
}

func chunkAt(data []byte, off int) Chunk {
	return Chunk{
		ID:     string(data[off : off+4]),
		Size:   binary.LittleEndian.Uint32(data[off+4 : off+8]),
		Offset: off,
	}
}

func checkMagic(data []byte) error {
	if len(data) < headerSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidMagic)
	}
	return nil
}
