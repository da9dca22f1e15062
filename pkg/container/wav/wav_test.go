package wav_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/MrWong99/stegovox/pkg/container/wav"
)

// pcmFixture encodes a short 16-bit mono ramp at 44.1 kHz.
func pcmFixture(t *testing.T, samples int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	enc := gowav.NewEncoder(f, 44100, 16, 1, 1)
	data := make([]int, samples)
	for i := range data {
		data[i] = (i * 37) % 2000
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return raw
}

func riffSize(b []byte) uint32 { return binary.LittleEndian.Uint32(b[4:8]) }

func TestEmbedExtract(t *testing.T) {
	t.Parallel()

	orig := pcmFixture(t, 1000)
	snapshot := bytes.Clone(orig)
	payload := []byte("0123456789")

	out, err := wav.Embed(orig, payload)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !bytes.Equal(orig, snapshot) {
		t.Fatal("Embed modified its input")
	}
	if got, want := riffSize(out), riffSize(orig)+18; got != want {
		t.Errorf("RIFF size = %d, want %d", got, want)
	}
	if len(out) != len(orig)+18 {
		t.Errorf("len = %d, want %d", len(out), len(orig)+18)
	}

	got, ok, err := wav.Extract(out)
	if err != nil || !ok {
		t.Fatalf("Extract = %v, %v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Extract = %q, want %q", got, payload)
	}
}

func TestEmbedOddPayloadIsPadded(t *testing.T) {
	t.Parallel()

	orig := pcmFixture(t, 100)
	out, err := wav.Embed(orig, []byte("odd"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got, want := riffSize(out), riffSize(orig)+8+3+1; got != want {
		t.Errorf("RIFF size = %d, want %d", got, want)
	}
	if len(out)%2 != 0 {
		t.Errorf("output length %d is odd", len(out))
	}

	// A second chunk after the padded one is still reachable by the scanner.
	out, err = wav.Embed(out, []byte("second"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	chunks, err := wav.Chunks(out)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	var ids []string
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	if len(ids) != 4 || ids[0] != "fmt " || ids[1] != "data" || ids[2] != "STEK" || ids[3] != "STEK" {
		t.Fatalf("chunk ids = %q", ids)
	}
	if chunks[2].Size != 3 || chunks[3].Size != 6 {
		t.Errorf("chunk sizes = %d, %d", chunks[2].Size, chunks[3].Size)
	}

	got, ok, err := wav.Extract(out)
	if err != nil || !ok || string(got) != "odd" {
		t.Errorf("Extract = %q, %v, %v", got, ok, err)
	}
}

func TestExtractAbsent(t *testing.T) {
	t.Parallel()

	got, ok, err := wav.Extract(pcmFixture(t, 10))
	if err != nil || ok || got != nil {
		t.Errorf("Extract = %q, %v, %v", got, ok, err)
	}
}

func TestInvalidMagic(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{
		nil,
		[]byte("OggS\x00\x02"),
		[]byte("RIFF\x04\x00\x00\x00AVI "),
	} {
		if _, err := wav.Embed(data, []byte("x")); !errors.Is(err, wav.ErrInvalidMagic) {
			t.Errorf("Embed(%q) err = %v", data, err)
		}
		if _, _, err := wav.Extract(data); !errors.Is(err, wav.ErrInvalidMagic) {
			t.Errorf("Extract(%q) err = %v", data, err)
		}
	}
}

func TestExtractTruncated(t *testing.T) {
	t.Parallel()

	data := append([]byte("RIFF\x00\x00\x00\x00WAVE"), "STEK"...)
	data = binary.LittleEndian.AppendUint32(data, 100)
	data = append(data, 1, 2, 3)

	if _, _, err := wav.Extract(data); !errors.Is(err, wav.ErrTruncatedChunk) {
		t.Errorf("Extract err = %v, want ErrTruncatedChunk", err)
	}
}

func TestStrip(t *testing.T) {
	t.Parallel()

	orig := pcmFixture(t, 64)
	out, err := wav.Embed(orig, []byte("payload"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	stripped, n, err := wav.Strip(out)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d chunks, want 1", n)
	}
	if !bytes.Equal(stripped, orig) {
		t.Error("Strip(Embed(x)) != x")
	}
}

func TestReadInfo(t *testing.T) {
	t.Parallel()

	data, err := wav.Embed(pcmFixture(t, 4410), []byte("hidden"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	info, err := wav.ReadInfo(data)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 1 || info.BitDepth != 16 || info.Format != 1 {
		t.Errorf("info = %+v", info)
	}
	if _, err := wav.ReadInfo([]byte("nope")); !errors.Is(err, wav.ErrInvalidMagic) {
		t.Errorf("ReadInfo(garbage) err = %v", err)
	}
}
