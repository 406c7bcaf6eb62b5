package pagekit

import (
	"io"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
)

// DirectoryProvider supplies the writable directory that output documents
// are placed in. sourcePath is the document being transformed, or the
// output name for operations without a single source (merge).
type DirectoryProvider interface {
	OutputDir(sourcePath string) (string, error)
}

// Option is a functional option for configuring the page engine.
type Option func(*Config)

// Config holds the resolved engine settings. Build it with NewConfig.
type Config struct {
	Dirs             DirectoryProvider // nil means "next to the source"
	Now              func() time.Time
	Logger           logrus.FieldLogger
	CompressionLevel int // flate level for newly written streams
	Validate         bool
	DefaultPageSize  SizeType
}

// WithOutputDir sets where output documents are written.
func WithOutputDir(p DirectoryProvider) Option {
	return func(c *Config) {
		c.Dirs = p
	}
}

// WithClock overrides the time source used for output file names.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithLogger sets the logger operations report to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithCompressionLevel sets the flate level (1-9) for streams the engine
// writes itself. CompressPdf always uses the best compression.
func WithCompressionLevel(level int) Option {
	return func(c *Config) {
		c.CompressionLevel = level
	}
}

// WithValidation makes every operation validate its output with an
// independent parser before publishing it.
func WithValidation(on bool) Option {
	return func(c *Config) {
		c.Validate = on
	}
}

// WithDefaultPageSize sets the size given to pages that declare no MediaBox.
func WithDefaultPageSize(s SizeType) Option {
	return func(c *Config) {
		c.DefaultPageSize = s
	}
}

// NewConfig applies opts over the defaults: directory of the source file,
// wall clock, a discarding logger, default flate level and A4.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Now:              time.Now,
		CompressionLevel: zlib.DefaultCompression,
		DefaultPageSize:  PageSizeA4,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.DefaultPageSize.Valid() {
		cfg.DefaultPageSize = PageSizeA4
	}
	if cfg.CompressionLevel < zlib.HuffmanOnly || cfg.CompressionLevel > zlib.BestCompression {
		cfg.CompressionLevel = zlib.DefaultCompression
	}
	return cfg
}
