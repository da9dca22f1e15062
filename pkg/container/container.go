// Package container holds what the Ogg and WAV codecs share.
//
// Every codec in the sub-packages is a pure transform over a byte buffer:
// input slices are never modified and each rewrite returns a fresh buffer,
// so independent calls may run concurrently without coordination.
package container

import "errors"

// ErrInvalidMagic is returned when a buffer or packet does not start with the
// signature its codec expects ("OpusTags" for Ogg comment packets,
// "RIFF"/"WAVE" for WAV files).
var ErrInvalidMagic = errors.New("container: invalid magic")
