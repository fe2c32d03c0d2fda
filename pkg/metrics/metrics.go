// Package metrics exports codec activity to Prometheus.
//
// A Collector implements message.Observer and is installed on a codec with
// message.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	obs := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("cluster"))
//	codec := message.NewCodec(nil, message.WithObserver(obs))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "groupwire").
	Namespace string

	// Subsystem is the metrics subsystem (default: "codec").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for message sizes in bytes.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the size histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "groupwire",
		Subsystem: "codec",
		// 16B to 4MB
		Buckets:  prometheus.ExponentialBuckets(16, 4, 10),
		Registry: prometheus.DefaultRegisterer,
	}
}

// Collector records codec events as Prometheus metrics.
type Collector struct {
	encoded *prometheus.CounterVec
	decoded *prometheus.CounterVec
	size    *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

var _ message.Observer = (*Collector)(nil)

// New creates a Collector and registers its metrics.
//
// Metrics collected (with the default namespace and subsystem):
//   - groupwire_codec_messages_encoded_total: by type and mode (full, no_addrs)
//   - groupwire_codec_messages_decoded_total: by type and mode (full, skip_payload)
//   - groupwire_codec_message_size_bytes: histogram by direction
//   - groupwire_codec_errors_total: by operation and error class
//
// New panics if the metrics are already registered with the registry, as
// promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		encoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_encoded_total",
			Help:        "Total number of messages encoded",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "mode"}),

		decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_decoded_total",
			Help:        "Total number of messages decoded",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "mode"}),

		size: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "message_size_bytes",
			Help:        "Encoded message size in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"direction"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of codec failures",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "error_type"}),
	}
}

// MessageEncoded implements message.Observer.
func (c *Collector) MessageEncoded(t message.Type, size int, noAddrs bool) {
	mode := "full"
	if noAddrs {
		mode = "no_addrs"
	}
	c.encoded.WithLabelValues(t.String(), mode).Inc()
	c.size.WithLabelValues("out").Observe(float64(size))
}

// MessageDecoded implements message.Observer. Skipped payloads are not
// included in the size histogram.
func (c *Collector) MessageDecoded(t message.Type, size int, skipped bool) {
	mode := "full"
	if skipped {
		mode = "skip_payload"
	} else {
		c.size.WithLabelValues("in").Observe(float64(size))
	}
	c.decoded.WithLabelValues(t.String(), mode).Inc()
}

// CodecError implements message.Observer.
func (c *Collector) CodecError(op string, err error) {
	c.errors.WithLabelValues(op, Classify(err)).Inc()
}

// Classify returns a low-cardinality label for a codec error.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated"
	case errors.Is(err, message.ErrUnknownMagic):
		return "unknown_magic"
	case errors.Is(err, message.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, protocol.ErrAllocationTooLarge),
		errors.Is(err, protocol.ErrCollectionTooLarge),
		errors.Is(err, protocol.ErrFrameTooLarge):
		return "limit"
	case errors.Is(err, message.ErrMarshal),
		errors.Is(err, marshal.ErrDecompressedTooLarge):
		return "marshal"
	case errors.Is(err, message.ErrInvalidHeaderID),
		errors.Is(err, message.ErrInvalidLength),
		errors.Is(err, protocol.ErrNegativeLength),
		errors.Is(err, protocol.ErrVarintOverflow):
		return "malformed"
	case errors.Is(err, address.ErrUnknownKind),
		errors.Is(err, address.ErrInvalidIPLen),
		errors.Is(err, address.ErrNilAddress):
		return "address"
	default:
		return "internal"
	}
}
