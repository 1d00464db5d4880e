package mbox

import (
	"github.com/ProtonMail/go-mailstream/rfc822"
	"github.com/sirupsen/logrus"
)

type framerConfig struct {
	respectLength bool
	parseOpts     []rfc822.Option
	log           logrus.FieldLogger
}

func newFramerConfig(opts ...Option) framerConfig {
	cfg := framerConfig{
		respectLength: true,
		log:           logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt.config(&cfg)
	}

	return cfg
}

// Option represents a type that can be used to configure the framer.
type Option interface {
	config(cfg *framerConfig)
}

// WithoutLengthHint disables the declared-length seek hint; every message end
// is then found by a literal sentinel scan.
func WithoutLengthHint() Option {
	return &withoutLengthHint{}
}

type withoutLengthHint struct{}

func (opt withoutLengthHint) config(cfg *framerConfig) {
	cfg.respectLength = false
}

// WithParseOptions sets the options applied when parsing each framed message
// into a tree.
func WithParseOptions(opts ...rfc822.Option) Option {
	return &withParseOptions{opts: opts}
}

type withParseOptions struct {
	opts []rfc822.Option
}

func (opt *withParseOptions) config(cfg *framerConfig) {
	cfg.parseOpts = opt.opts
}

// WithLogger instructs the framer to log through the given logger instead of
// the global one.
func WithLogger(log logrus.FieldLogger) Option {
	return &withLogger{log: log}
}

type withLogger struct {
	log logrus.FieldLogger
}

func (opt *withLogger) config(cfg *framerConfig) {
	cfg.log = opt.log
}
