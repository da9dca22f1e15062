package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/MrWong99/stegovox/pkg/stego/crypto"
)

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plaintext string
		password  string
	}{
		{name: "ascii", plaintext: "hello", password: "p@ss"},
		{name: "empty message", plaintext: "", password: "pw"},
		{name: "unicode", plaintext: "geheime Nachricht ✓ 秘密", password: "pässwörd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := crypto.Encrypt(tt.plaintext, tt.password)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if want := crypto.MinPayloadSize + len(tt.plaintext) + crypto.TagSize; len(p) != want {
				t.Errorf("payload length = %d, want %d", len(p), want)
			}
			got, err := crypto.Decrypt(p, tt.password)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("Decrypt = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	t.Parallel()

	a, err := crypto.Encrypt("same", "same")
	if err != nil {
		t.Fatal(err)
	}
	b, err := crypto.Encrypt("same", "same")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Salt(), b.Salt()) || bytes.Equal(a.Nonce(), b.Nonce()) {
		t.Error("two encryptions share salt or nonce")
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical payloads")
	}
}

func TestDecryptFailures(t *testing.T) {
	t.Parallel()

	p, err := crypto.Encrypt("hello", "p@ss")
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Clone(p)
	tampered[len(tampered)-1] ^= 0x80

	tests := []struct {
		name     string
		payload  crypto.Payload
		password string
		want     error
	}{
		{name: "wrong password", payload: p, password: "wrong", want: crypto.ErrAuthentication},
		{name: "tampered tag", payload: tampered, password: "p@ss", want: crypto.ErrAuthentication},
		{name: "too short", payload: p[:27], password: "p@ss", want: crypto.ErrMalformedPayload},
		{name: "empty", payload: nil, password: "p@ss", want: crypto.ErrMalformedPayload},
		{name: "envelope without tag", payload: p[:28], password: "p@ss", want: crypto.ErrAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := crypto.Decrypt(tt.payload, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decrypt err = %v, want %v", err, tt.want)
			}
			if got != "" {
				t.Errorf("Decrypt returned %q alongside an error", got)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	k1 := crypto.DeriveKey("passwd", []byte("salt"))
	k2 := crypto.DeriveKey("passwd", []byte("salt"))
	if len(k1) != crypto.KeySize || !bytes.Equal(k1, k2) {
		t.Fatalf("DeriveKey not deterministic or wrong size: %x", k1)
	}
	if bytes.Equal(k1, crypto.DeriveKey("passwd", []byte("salu"))) {
		t.Error("different salts produced the same key")
	}
	if bytes.Equal(k1, crypto.DeriveKey("passwe", []byte("salt"))) {
		t.Error("different passwords produced the same key")
	}
}
