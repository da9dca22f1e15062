package stego

import (
	"errors"

	"github.com/MrWong99/stegovox/pkg/container"
	"github.com/MrWong99/stegovox/pkg/container/ogg"
	"github.com/MrWong99/stegovox/pkg/stego/crypto"
)

// Errors returned by Encode and Decode. Errors from the container and crypto
// packages are re-exported so that callers can match everything with
// errors.Is against this package alone.
var (
	// ErrUnsupportedFormat means the buffer starts with neither "OggS" nor "RIFF".
	ErrUnsupportedFormat = errors.New("stego: unsupported container format")

	// ErrNoHiddenMessage means the container is well formed but carries no
	// payload. It is an expected outcome, not a corruption.
	ErrNoHiddenMessage = errors.New("stego: no hidden message")

	// ErrVerificationFailed means a freshly embedded payload could not be
	// read back from the result.
	ErrVerificationFailed = errors.New("stego: embedded payload did not read back")

	// ErrEmptyPassword is returned when no password is given.
	ErrEmptyPassword = errors.New("stego: empty password")

	ErrTagsPageNotFound  = ogg.ErrTagsPageNotFound
	ErrUnsupportedLayout = ogg.ErrUnsupportedLayout
	ErrMalformedTags     = ogg.ErrMalformedTags
	ErrInvalidPage       = ogg.ErrInvalidPage
	ErrInvalidMagic      = container.ErrInvalidMagic
	ErrMalformedPayload  = crypto.ErrMalformedPayload
	ErrAuthentication    = crypto.ErrAuthentication
)
