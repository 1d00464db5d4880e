package rfc822

import "github.com/ProtonMail/go-mailstream/bytebuf"

const (
	// DefaultMaxHeaderLineLength caps the length of a single physical header
	// line, each folding continuation counting as its own line.
	DefaultMaxHeaderLineLength = 8 << 10

	// DefaultMaxNestingDepth caps multipart recursion; containers nested deeper
	// are kept as opaque leaves.
	DefaultMaxNestingDepth = 10
)

type parseConfig struct {
	strictHeaders bool
	maxHeaderLine int
	maxDepth      int
	maxWindow     int
}

func newParseConfig(opts ...Option) parseConfig {
	cfg := parseConfig{
		maxHeaderLine: DefaultMaxHeaderLineLength,
		maxDepth:      DefaultMaxNestingDepth,
		maxWindow:     bytebuf.DefaultMaxWindow,
	}

	for _, opt := range opts {
		opt.config(&cfg)
	}

	return cfg
}

// Option represents a type that can be used to configure the parser.
type Option interface {
	config(cfg *parseConfig)
}

// WithStrictHeaders instructs the parser to fail with a *ParseError on the
// first malformed header line instead of recording a diagnostic.
func WithStrictHeaders() Option {
	return &withStrictHeaders{}
}

type withStrictHeaders struct{}

func (opt withStrictHeaders) config(cfg *parseConfig) {
	cfg.strictHeaders = true
}

// WithMaxHeaderLineLength caps the length of a single physical header line to
// bound memory on adversarial input. Values <= 0 disable the cap.
func WithMaxHeaderLineLength(n int) Option {
	return &withMaxHeaderLineLength{n: n}
}

type withMaxHeaderLineLength struct {
	n int
}

func (opt withMaxHeaderLineLength) config(cfg *parseConfig) {
	cfg.maxHeaderLine = opt.n
}

// WithMaxNestingDepth caps multipart recursion depth. Containers nested deeper
// than the cap are kept as opaque leaves.
func WithMaxNestingDepth(n int) Option {
	return &withMaxNestingDepth{n: n}
}

type withMaxNestingDepth struct {
	n int
}

func (opt withMaxNestingDepth) config(cfg *parseConfig) {
	cfg.maxDepth = opt.n
}

// WithMaxScanWindow caps the byte window used to disambiguate lines and
// boundary candidates. Hitting the cap fails with ErrBoundaryStraddle.
func WithMaxScanWindow(n int) Option {
	return &withMaxScanWindow{n: n}
}

type withMaxScanWindow struct {
	n int
}

func (opt withMaxScanWindow) config(cfg *parseConfig) {
	cfg.maxWindow = opt.n
}
