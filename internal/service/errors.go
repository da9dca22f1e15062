package service

import (
	"errors"

	"github.com/MrWong99/stegovox/pkg/container/wav"
	"github.com/MrWong99/stegovox/pkg/stego"
)

var (
	// ErrEmptyDocID is returned by LinkLastEncoded without a document id.
	ErrEmptyDocID = errors.New("service: empty document id")

	// ErrNothingToLink means there is no fresh last-encoded buffer to link.
	ErrNothingToLink = errors.New("service: no encoded buffer to link")
)

// Error codes reported to bridge and bot clients.
const (
	CodeUnsupportedFormat  = "unsupported_format"
	CodeInvalidContainer   = "invalid_container"
	CodeNoHiddenMessage    = "no_hidden_message"
	CodeMalformedPayload   = "malformed_payload"
	CodeAuthentication     = "authentication_failed"
	CodeEmptyPassword      = "empty_password"
	CodeVerificationFailed = "verification_failed"
	CodeInvalidRequest     = "invalid_request"
	CodeNothingToLink      = "nothing_to_link"
	CodeInternal           = "internal"
)

// Code classifies err into one of the Code constants. nil yields "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, stego.ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case errors.Is(err, stego.ErrTagsPageNotFound),
		errors.Is(err, stego.ErrInvalidMagic),
		errors.Is(err, stego.ErrUnsupportedLayout),
		errors.Is(err, stego.ErrMalformedTags),
		errors.Is(err, stego.ErrInvalidPage),
		errors.Is(err, wav.ErrTruncatedChunk):
		return CodeInvalidContainer
	case errors.Is(err, stego.ErrNoHiddenMessage):
		return CodeNoHiddenMessage
	case errors.Is(err, stego.ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, stego.ErrAuthentication):
		return CodeAuthentication
	case errors.Is(err, stego.ErrEmptyPassword):
		return CodeEmptyPassword
	case errors.Is(err, stego.ErrVerificationFailed):
		return CodeVerificationFailed
	case errors.Is(err, ErrEmptyDocID):
		return CodeInvalidRequest
	case errors.Is(err, ErrNothingToLink):
		return CodeNothingToLink
	default:
		return CodeInternal
	}
}
