// Package observe provides the observability primitives shared by the
// stegovox server: OpenTelemetry metrics and traces, trace-aware slog
// loggers, and HTTP middleware tying them together.
//
// Metrics go through the OpenTelemetry Metrics API and are exported for
// Prometheus scraping by [InitProvider]. Tests should build their own
// [Metrics] with [NewMetrics] and a ManualReader instead of touching
// [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all stegovox metrics.
const meterName = "github.com/MrWong99/stegovox"

// Metrics holds the metric instruments recorded by the service layer and the
// bridges. The OTel instruments are safe for concurrent use.
type Metrics struct {
	// EncodeDuration and DecodeDuration track end-to-end codec latency,
	// including key derivation. Attribute: format.
	EncodeDuration metric.Float64Histogram
	DecodeDuration metric.Float64Histogram

	// KDFDuration tracks PBKDF2 key derivation alone.
	KDFDuration metric.Float64Histogram

	// Requests counts operations. Attributes: op, format, status.
	Requests metric.Int64Counter

	// Errors counts failed operations. Attributes: op, kind.
	Errors metric.Int64Counter

	// PayloadBytes records the size of sealed payloads written or read.
	PayloadBytes metric.Int64Histogram

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// WSConnections tracks open WebSocket bridge connections.
	WSConnections metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time.
	// Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. PBKDF2 with 100k rounds
// dominates, so the interesting range is tens to hundreds of milliseconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

var payloadBuckets = []float64{
	64, 256, 1024, 4096, 16384, 65536, 262144, 1048576,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	latency := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.EncodeDuration, err = latency("stegovox.encode.duration", "Latency of hiding a message in a container."); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = latency("stegovox.decode.duration", "Latency of recovering a message from a container."); err != nil {
		return nil, err
	}
	if met.KDFDuration, err = latency("stegovox.kdf.duration", "Latency of password key derivation."); err != nil {
		return nil, err
	}

	if met.Requests, err = m.Int64Counter("stegovox.requests",
		metric.WithDescription("Total stego operations by op, format, and status."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("stegovox.errors",
		metric.WithDescription("Total failed stego operations by op and error kind."),
	); err != nil {
		return nil, err
	}
	if met.PayloadBytes, err = m.Int64Histogram("stegovox.payload.bytes",
		metric.WithDescription("Size of sealed payloads."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(payloadBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("stegovox.cache.hits",
		metric.WithDescription("Decode requests answered from the buffer cache."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("stegovox.cache.misses",
		metric.WithDescription("Cache fallbacks that found no usable entry."),
	); err != nil {
		return nil, err
	}
	if met.WSConnections, err = m.Int64UpDownCounter("stegovox.ws.connections",
		metric.WithDescription("Number of open WebSocket bridge connections."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("stegovox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Call it after [InitProvider] so the
// instruments bind to the exporting provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordOperation records one finished operation: the request counter, the
// matching latency histogram and, on failure, the error counter. kind is
// ignored when status is "ok".
func (m *Metrics) RecordOperation(ctx context.Context, op, format, status, kind string, elapsed time.Duration) {
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("format", format),
		attribute.String("status", status),
	))

	h := m.DecodeDuration
	if op == "encode" {
		h = m.EncodeDuration
	}
	h.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("format", format)))

	if status != "ok" {
		m.Errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("kind", kind),
		))
	}
}

// RecordCache increments the cache hit or miss counter.
func (m *Metrics) RecordCache(ctx context.Context, hit bool) {
	if hit {
		m.CacheHits.Add(ctx, 1)
		return
	}
	m.CacheMisses.Add(ctx, 1)
}
