package ritual

import (
	"io"
	"log/slog"
)

// Option customizes parsers, compilers and grammars
type Option func(*options)

type options struct {
	config  *Config
	logger  *slog.Logger
	factory NodeFactory
}

// WithConfig replaces the default settings
func WithConfig(cfg *Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets where trace and optimizer messages are logged.
// Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNodeFactory sets what struct literals evaluate to
func WithNodeFactory(f NodeFactory) Option {
	return func(o *options) { o.factory = f }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.config == nil {
		o.config = NewConfig()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.factory == nil {
		o.factory = NodeFactoryFunc(func(typeName string, fields []any) (any, error) {
			return &Node{Type: typeName, Fields: positionalFields(fields)}, nil
		})
	}
	return o
}

func positionalFields(values []any) []NodeField {
	fields := make([]NodeField, len(values))
	for i, v := range values {
		fields[i] = NodeField{Value: v}
	}
	return fields
}
