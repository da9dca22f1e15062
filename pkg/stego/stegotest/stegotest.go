// Package stegotest builds small audio containers for tests.
package stegotest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/MrWong99/stegovox/pkg/container/ogg"
)

// Serial is the stream serial number of [Opus] fixtures.
const Serial = 7

// Opus returns a minimal Ogg/Opus stream: OpusHead, OpusTags with vendor
// "fixture" and ENCODER=test, and one 60-byte audio page.
func Opus(t testing.TB) []byte {
	t.Helper()
	head := (&ogg.OpusHead{Version: 1, Channels: 1, PreSkip: ogg.DefaultPreSkip, SampleRate: 48000}).Encode()
	tags := (&ogg.CommentHeader{Vendor: "fixture", Comments: []string{"ENCODER=test"}}).Encode()
	audio := bytes.Repeat([]byte{0x55}, 60)

	var buf bytes.Buffer
	buf.Write((&ogg.Page{HeaderType: ogg.FlagBOS, SerialNumber: Serial, Segments: ogg.Lacing(len(head)), Payload: head}).Encode())
	buf.Write((&ogg.Page{SerialNumber: Serial, PageSequence: 1, Segments: ogg.Lacing(len(tags)), Payload: tags}).Encode())
	buf.Write((&ogg.Page{HeaderType: ogg.FlagEOS, GranulePos: ogg.DefaultPreSkip + 960, SerialNumber: Serial, PageSequence: 2, Segments: ogg.Lacing(len(audio)), Payload: audio}).Encode())
	return buf.Bytes()
}

// WAV returns a silent 8 kHz 16-bit mono PCM WAV file with the given number
// of samples.
func WAV(t testing.TB, samples int) []byte {
	t.Helper()
	b := []byte("RIFF\x00\x00\x00\x00WAVEfmt ")
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, 1)     // PCM
	b = binary.LittleEndian.AppendUint16(b, 1)     // channels
	b = binary.LittleEndian.AppendUint32(b, 8000)  // sample rate
	b = binary.LittleEndian.AppendUint32(b, 16000) // byte rate
	b = binary.LittleEndian.AppendUint16(b, 2)     // block align
	b = binary.LittleEndian.AppendUint16(b, 16)    // bits per sample
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(samples*2))
	b = append(b, make([]byte, samples*2)...)
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(b)-8))
	return b
}
