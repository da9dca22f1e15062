package ogg

import (
	"errors"

	"github.com/MrWong99/stegovox/pkg/container"
)

var (
	// ErrInvalidPage indicates a truncated page or one missing the "OggS"
	// capture pattern.
	ErrInvalidPage = errors.New("ogg: invalid page structure")

	// ErrTagsPageNotFound is returned when the stream holds fewer than two
	// complete pages, so there is no comment page to read or rewrite.
	ErrTagsPageNotFound = errors.New("ogg: comment page not found")

	// ErrUnsupportedLayout is returned for streams whose second page does not
	// start the comment packet of the first logical stream: multiplexed or
	// chained files, or a comment packet sharing its last page with audio.
	ErrUnsupportedLayout = errors.New("ogg: unsupported stream layout")

	// ErrMalformedTags indicates a comment packet whose length fields run past
	// the end of the packet.
	ErrMalformedTags = errors.New("ogg: malformed comment header")

	// ErrInvalidHeader indicates an OpusHead packet that is too short or
	// carries the wrong signature.
	ErrInvalidHeader = errors.New("ogg: invalid Opus header")
)

// ErrInvalidMagic is the shared container sentinel, re-exported so callers of
// this package need not import the parent.
var ErrInvalidMagic = container.ErrInvalidMagic
