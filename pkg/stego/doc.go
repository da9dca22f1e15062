// Package stego hides password-protected text messages in audio files.
//
// Two containers are supported and chosen by their magic bytes:
//
//   - Ogg/Opus ("OggS"): the sealed message is base64url-encoded and stored
//     as a STEGO=<text> comment in the OpusTags packet. The comment pages are
//     re-laced and checksummed again; the audio is untouched.
//   - WAV ("RIFF"): the sealed message is stored raw in a trailing STEK chunk.
//
// Messages are sealed with package crypto (PBKDF2-SHA256 and AES-256-GCM).
// All functions are pure transforms over byte slices and may be called
// concurrently.
package stego
