// Package service is the request/response façade host applications call:
// it resolves conversation passwords, runs the stego codec, and keeps the
// buffer cache used to recover messages from re-encoded uploads.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrWong99/stegovox/internal/observe"
	"github.com/MrWong99/stegovox/internal/store"
	"github.com/MrWong99/stegovox/pkg/audio/transcode"
	"github.com/MrWong99/stegovox/pkg/stego"
	"github.com/MrWong99/stegovox/pkg/stego/crypto"
)

// EncodeRequest asks to hide Secret in Buffer.
type EncodeRequest struct {
	Buffer []byte
	Secret string

	// Password may be empty when ConversationID has a stored password.
	Password       string
	ConversationID string

	// DocID additionally caches the result under the document's key.
	DocID string

	// Remember stores Password for ConversationID.
	Remember bool
}

// EncodeResponse carries the encoded container.
type EncodeResponse struct {
	Buffer []byte
	Format stego.Format
}

// DecodeRequest asks to recover the message hidden in Buffer.
type DecodeRequest struct {
	Buffer         []byte
	Password       string
	ConversationID string
	DocID          string
	Remember       bool
}

// DecodeResponse carries the recovered message. FromCache is set when the
// message came from a cached buffer rather than from Buffer itself.
type DecodeResponse struct {
	Message   string
	FromCache bool
}

// Service is safe for concurrent use.
type Service struct {
	codec     *stego.Codec
	cache     store.Cache
	passwords store.PasswordStore
	metrics   *observe.Metrics
	now       func() time.Time
	ttl       atomic.Int64

	transcode     bool
	transcodeOpts transcode.Options
}

// Option configures a [Service].
type Option func(*Service)

// WithMetrics records operations on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCacheTTL sets how long cached buffers stay usable. Zero disables
// expiry.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl.Store(int64(d)) }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWAVTranscode converts WAV input to Ogg/Opus before encoding.
func WithWAVTranscode(opts transcode.Options) Option {
	return func(s *Service) {
		s.transcode = true
		s.transcodeOpts = opts
	}
}

// New creates a Service. cache and passwords are usually the same
// [store.Store].
func New(cache store.Cache, passwords store.PasswordStore, opts ...Option) *Service {
	s := &Service{cache: cache, passwords: passwords, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.codec = stego.New(stego.WithKDFObserver(func(d time.Duration) {
		s.metrics.KDFDuration.Record(context.Background(), d.Seconds())
	}))
	return s
}

// SetCacheTTL changes the cache TTL at runtime.
func (s *Service) SetCacheTTL(d time.Duration) {
	s.ttl.Store(int64(d))
}

// EncodeBuffer hides req.Secret in req.Buffer and caches the result as the
// last encoded buffer and, with a DocID, as the document's buffer.
func (s *Service) EncodeBuffer(ctx context.Context, req EncodeRequest) (resp EncodeResponse, err error) {
	ctx, span := observe.StartSpan(ctx, "service.EncodeBuffer")
	start := time.Now()
	format := stego.DetectFormat(req.Buffer)
	defer func() {
		s.record(ctx, "encode", resp.Format, err, time.Since(start))
		observe.EndSpan(span, err)
	}()
	resp.Format = format

	password, err := s.resolvePassword(ctx, req.Password, req.ConversationID, req.Remember)
	if err != nil {
		return resp, err
	}

	buf := req.Buffer
	if s.transcode && format == stego.FormatWav {
		if buf, err = transcode.WAVToOpus(ctx, buf, s.transcodeOpts); err != nil {
			return resp, fmt.Errorf("service: encode: %w", err)
		}
		resp.Format = stego.FormatOgg
	}

	out, err := s.codec.Encode(req.Secret, password, buf)
	if err != nil {
		return resp, err
	}
	resp.Buffer = out
	s.metrics.PayloadBytes.Record(ctx, int64(sealedSize(len(req.Secret))))

	s.cachePut(ctx, store.KeyLastEncoded, out)
	if req.DocID != "" {
		s.cachePut(ctx, store.DocKey(req.DocID), out)
	}
	return resp, nil
}

// DecodeBuffer recovers the message hidden in req.Buffer.
//
// A WAV buffer without a STEK chunk is usually an Ogg upload the host
// re-encoded, which drops the comment header. In that case the cached buffer
// of req.DocID, then the last encoded buffer, is decoded instead.
func (s *Service) DecodeBuffer(ctx context.Context, req DecodeRequest) (resp DecodeResponse, err error) {
	ctx, span := observe.StartSpan(ctx, "service.DecodeBuffer")
	start := time.Now()
	format := stego.DetectFormat(req.Buffer)
	defer func() {
		s.record(ctx, "decode", format, err, time.Since(start))
		observe.EndSpan(span, err)
	}()

	password, err := s.resolvePassword(ctx, req.Password, req.ConversationID, req.Remember)
	if err != nil {
		return resp, err
	}

	msg, err := s.codec.Decode(req.Buffer, password)
	switch {
	case err == nil:
		if format == stego.FormatOgg && req.DocID != "" {
			s.cachePut(ctx, store.DocKey(req.DocID), req.Buffer)
		}
		s.metrics.PayloadBytes.Record(ctx, int64(sealedSize(len(msg))))
		return DecodeResponse{Message: msg}, nil
	case errors.Is(err, stego.ErrNoHiddenMessage) && format == stego.FormatWav:
		return s.decodeCached(ctx, req.DocID, password, err)
	default:
		return resp, err
	}
}

// decodeCached tries the cached buffers in order and returns notFound when
// none is usable.
func (s *Service) decodeCached(ctx context.Context, docID, password string, notFound error) (DecodeResponse, error) {
	keys := []string{store.KeyLastEncoded}
	if docID != "" {
		keys = []string{store.DocKey(docID), store.KeyLastEncoded}
	}

	for _, key := range keys {
		buf, ok, err := s.cacheGet(ctx, key)
		if err != nil {
			observe.Logger(ctx).Warn("service: cache fallback skipped", "key", key, "err", err)
			continue
		}
		if !ok {
			continue
		}
		msg, err := s.codec.Decode(buf, password)
		if errors.Is(err, stego.ErrNoHiddenMessage) {
			continue
		}
		if err != nil {
			return DecodeResponse{}, err
		}
		s.metrics.RecordCache(ctx, true)
		observe.Logger(ctx).Debug("service: decoded from cached buffer", "key", key)
		return DecodeResponse{Message: msg, FromCache: true}, nil
	}

	s.metrics.RecordCache(ctx, false)
	return DecodeResponse{}, notFound
}

// LinkLastEncoded caches the last encoded buffer under docID.
func (s *Service) LinkLastEncoded(ctx context.Context, docID string) (err error) {
	ctx, span := observe.StartSpan(ctx, "service.LinkLastEncoded")
	defer func() { observe.EndSpan(span, err) }()

	if docID == "" {
		return ErrEmptyDocID
	}
	buf, ok, err := s.cacheGet(ctx, store.KeyLastEncoded)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingToLink
	}
	if err := s.cache.Put(ctx, store.DocKey(docID), buf); err != nil {
		return fmt.Errorf("service: link: %w", err)
	}
	return nil
}

// Inspect describes a container without decrypting it.
func (s *Service) Inspect(ctx context.Context, buf []byte) (stego.Report, error) {
	_, span := observe.StartSpan(ctx, "service.Inspect")
	r, err := stego.Inspect(buf)
	observe.EndSpan(span, err)
	return r, err
}

// Contains reports whether buf carries a hidden payload.
func (s *Service) Contains(buf []byte) bool {
	return s.codec.Contains(buf)
}

// SetPassword stores password for conversationID; an empty password clears
// it.
func (s *Service) SetPassword(ctx context.Context, conversationID, password string) error {
	if password == "" {
		if err := s.passwords.DeletePassword(ctx, conversationID); err != nil {
			return fmt.Errorf("service: clear password: %w", err)
		}
		return nil
	}
	if err := s.passwords.SetPassword(ctx, conversationID, password); err != nil {
		return fmt.Errorf("service: set password: %w", err)
	}
	return nil
}

// resolvePassword returns the explicit password, remembering it if asked,
// or the conversation's stored one. "" is returned when neither exists; the
// codec reports that as ErrEmptyPassword.
func (s *Service) resolvePassword(ctx context.Context, password, conversationID string, remember bool) (string, error) {
	if password != "" {
		if remember && conversationID != "" {
			if err := s.passwords.SetPassword(ctx, conversationID, password); err != nil {
				return "", fmt.Errorf("service: remember password: %w", err)
			}
		}
		return password, nil
	}
	if conversationID == "" {
		return "", nil
	}
	p, err := s.passwords.Password(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("service: load password: %w", err)
	}
	return p, nil
}

// cachePut logs failures; a broken cache must not fail an encode.
func (s *Service) cachePut(ctx context.Context, key string, buf []byte) {
	if err := s.cache.Put(ctx, key, buf); err != nil {
		observe.Logger(ctx).Warn("service: cache put failed", "key", key, "err", err)
	}
}

// cacheGet returns the buffer under key unless it is missing or expired.
// Expired entries are deleted.
func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	e, err := s.cache.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("service: cache get %q: %w", key, err)
	}
	if ttl := time.Duration(s.ttl.Load()); ttl > 0 && s.now().Sub(e.StoredAt) > ttl {
		if err := s.cache.Delete(ctx, key); err != nil {
			observe.Logger(ctx).Warn("service: cache delete failed", "key", key, "err", err)
		}
		return nil, false, nil
	}
	return e.Buffer, true, nil
}

func (s *Service) record(ctx context.Context, op string, format stego.Format, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, op, format.String(), status, Code(err), elapsed)
}

// sealedSize is the payload size for an n-byte message.
func sealedSize(n int) int {
	return crypto.MinPayloadSize + n + crypto.TagSize
}

// RunJanitor purges expired cache entries every interval until ctx is done.
// It returns at once when the cache cannot purge. The TTL is re-read on
// every tick.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) error {
	p, ok := s.cache.(interface {
		Purge(ctx context.Context, cutoff time.Time) (int, error)
	})
	if !ok {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ttl := time.Duration(s.ttl.Load())
			if ttl <= 0 {
				continue
			}
			n, err := p.Purge(ctx, s.now().Add(-ttl))
			if err != nil {
				observe.Logger(ctx).Warn("service: cache purge failed", "err", err)
				continue
			}
			if n > 0 {
				observe.Logger(ctx).Debug("service: purged expired buffers", "count", n)
			}
		}
	}
}
