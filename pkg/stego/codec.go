package stego

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/stegovox/pkg/container/ogg"
	"github.com/MrWong99/stegovox/pkg/container/wav"
	"github.com/MrWong99/stegovox/pkg/stego/crypto"
)

// Codec hides and recovers encrypted messages in audio containers. The zero
// value is not usable; create one with New. A Codec is safe for concurrent
// use.
type Codec struct {
	verify bool
	log    *slog.Logger
	kdf    crypto.KeyFunc
}

// Option configures a Codec.
type Option func(*Codec)

// WithoutVerification skips reading the payload back after embedding it.
func WithoutVerification() Option {
	return func(c *Codec) { c.verify = false }
}

// WithLogger sets the logger used for debug output. Secrets and passwords are
// never logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.log = l }
}

// WithKDFObserver calls observe with the duration of every key derivation.
func WithKDFObserver(observe func(time.Duration)) Option {
	return func(c *Codec) {
		c.kdf = func(password string, salt []byte) []byte {
			start := time.Now()
			key := crypto.DeriveKey(password, salt)
			observe(time.Since(start))
			return key
		}
	}
}

// New returns a Codec that verifies every embedded payload.
func New(opts ...Option) *Codec {
	c := &Codec{verify: true, log: slog.Default(), kdf: crypto.DeriveKey}
	for _, o := range opts {
		o(c)
	}
	return c
}

var defaultCodec = New()

// Encode hides secret in container using the default Codec.
func Encode(secret, password string, container []byte) ([]byte, error) {
	return defaultCodec.Encode(secret, password, container)
}

// Decode recovers the secret hidden in container using the default Codec.
func Decode(container []byte, password string) (string, error) {
	return defaultCodec.Decode(container, password)
}

// Encode encrypts secret under password and hides it in container. Ogg/Opus
// streams carry the payload base64url-encoded in a STEGO comment; WAV files
// carry it raw in a STEK chunk. The input is never modified.
func (c *Codec) Encode(secret, password string, container []byte) ([]byte, error) {
	format := DetectFormat(container)
	if format == FormatUnknown {
		return nil, ErrUnsupportedFormat
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	payload, err := crypto.EncryptWith(secret, password, c.kdf)
	if err != nil {
		return nil, fmt.Errorf("stego: encode: %w", err)
	}

	var out []byte
	switch format {
	case FormatOgg:
		text := EncodeText(payload)
		if out, err = ogg.Inject(container, text); err != nil {
			return nil, fmt.Errorf("stego: encode: %w", err)
		}
		if c.verify {
			if got, ok := ogg.Extract(out); !ok || got != text {
				return nil, ErrVerificationFailed
			}
		}
	case FormatWav:
		base := container
		if _, ok, _ := wav.Extract(container); ok {
			if base, _, err = wav.Strip(container); err != nil {
				return nil, fmt.Errorf("stego: encode: %w", err)
			}
		}
		if out, err = wav.Embed(base, payload); err != nil {
			return nil, fmt.Errorf("stego: encode: %w", err)
		}
		if c.verify {
			if got, ok, err := wav.Extract(out); err != nil || !ok || !bytes.Equal(got, payload) {
				return nil, ErrVerificationFailed
			}
		}
	}

	c.log.Debug("stego: payload embedded",
		"format", format.String(),
		"payload_bytes", len(payload),
		"in_bytes", len(container),
		"out_bytes", len(out),
	)
	return out, nil
}

// Decode extracts the payload hidden in container and decrypts it with
// password. A container without a payload yields ErrNoHiddenMessage; a wrong
// password yields ErrAuthentication.
func (c *Codec) Decode(container []byte, password string) (string, error) {
	payload, err := c.extract(container)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyPassword
	}
	secret, err := crypto.DecryptWith(payload, password, c.kdf)
	if err != nil {
		return "", fmt.Errorf("stego: decode: %w", err)
	}
	return secret, nil
}

// Contains reports whether container carries a payload, without needing the
// password.
func (c *Codec) Contains(container []byte) bool {
	_, err := c.extract(container)
	return err == nil
}

func (c *Codec) extract(container []byte) (crypto.Payload, error) {
	switch DetectFormat(container) {
	case FormatOgg:
		text, ok := ogg.Extract(container)
		if !ok {
			return nil, ErrNoHiddenMessage
		}
		payload, err := DecodeText(text)
		if err != nil {
			return nil, fmt.Errorf("stego: decode: %w: %w", ErrMalformedPayload, err)
		}
		return payload, nil
	case FormatWav:
		payload, ok, err := wav.Extract(container)
		if err != nil {
			return nil, fmt.Errorf("stego: decode: %w", err)
		}
		if !ok {
			return nil, ErrNoHiddenMessage
		}
		return payload, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Strip removes any hidden payload from container. A container without one
// is returned as a copy.
func Strip(container []byte) ([]byte, error) {
	switch DetectFormat(container) {
	case FormatOgg:
		if _, ok := ogg.Extract(container); !ok {
			return bytes.Clone(container), nil
		}
		out, _, err := ogg.RemoveTag(container)
		if err != nil {
			return nil, fmt.Errorf("stego: strip: %w", err)
		}
		return out, nil
	case FormatWav:
		out, _, err := wav.Strip(container)
		if err != nil {
			return nil, fmt.Errorf("stego: strip: %w", err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
