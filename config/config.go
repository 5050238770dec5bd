// Package config builds a validated encode configuration from functional
// options, the CLI-facing counterpart of sea.EncodeParams. It never reads
// environment variables or files itself; the caller (cmd/sea) is
// responsible for turning flags into Option values.
package config

import (
	"errors"
	"fmt"
)

var (
	ErrQualityOutOfRange = errors.New("config: quality out of range")
	ErrParamOutOfRange   = errors.New("config: parameter out of range")
)

// EncodeConfig mirrors sea.EncodeParams, plus a Quality convenience field
// that expands into ResidualBits/ScaleFactorBits when those are left unset.
type EncodeConfig struct {
	Quality           int
	ResidualBits      int
	ScaleFactorBits   int
	VBR               bool
	VBRTargetBPS      float32
	ChunkSize         int
	FramesPerChunk    int
	ScaleFactorFrames int
	Metadata          map[string]string
}

// Option configures an EncodeConfig under construction.
type Option func(*EncodeConfig)

// WithQuality sets the quality tier (1..=8); Load expands it into
// ResidualBits/ScaleFactorBits unless those are set explicitly by a later
// option.
func WithQuality(q int) Option {
	return func(c *EncodeConfig) {
		c.Quality = q
	}
}

// WithResidualBits overrides the quality-tier default.
func WithResidualBits(bits int) Option {
	return func(c *EncodeConfig) {
		c.ResidualBits = bits
	}
}

// WithScaleFactorBits overrides the quality-tier default.
func WithScaleFactorBits(bits int) Option {
	return func(c *EncodeConfig) {
		c.ScaleFactorBits = bits
	}
}

// WithVBR switches on variable-bitrate residual widths with the given
// target bits-per-sample.
func WithVBR(targetBPS float32) Option {
	return func(c *EncodeConfig) {
		c.VBR = true
		c.VBRTargetBPS = targetBPS
	}
}

// WithChunkSize sets the fixed byte length of every chunk.
func WithChunkSize(n int) Option {
	return func(c *EncodeConfig) {
		c.ChunkSize = n
	}
}

// WithFramesPerChunk sets how many PCM frames each chunk covers.
func WithFramesPerChunk(n int) Option {
	return func(c *EncodeConfig) {
		c.FramesPerChunk = n
	}
}

// WithScaleFactorFrames sets how many frames share one scale-factor slot.
func WithScaleFactorFrames(n int) Option {
	return func(c *EncodeConfig) {
		c.ScaleFactorFrames = n
	}
}

// WithMetadata attaches a key/value pair to the encoded file's metadata
// block, applied once per call.
func WithMetadata(key, value string) Option {
	return func(c *EncodeConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		c.Metadata[key] = value
	}
}

// defaults matches spec.md §3's suggested defaults: moderate quality, CBR,
// a 5120-frame chunk with a 20-frame scale-factor slot.
func defaults() EncodeConfig {
	return EncodeConfig{
		Quality:           4,
		FramesPerChunk:    5120,
		ScaleFactorFrames: 20,
		ChunkSize:         4096,
	}
}

// qualityTable expands a quality tier into (scale_factor_bits, residual_bits)
// per spec.md §4.5's informative table.
func qualityTable(quality int) (sb, rb int, err error) {
	if quality < 1 || quality > 8 {
		return 0, 0, fmt.Errorf("%w: %d", ErrQualityOutOfRange, quality)
	}
	rb = quality
	if quality <= 4 {
		sb = 4
	} else {
		sb = 6
	}
	return sb, rb, nil
}

// Load builds an EncodeConfig from the given options, starting from
// spec.md's defaults, expanding Quality into ResidualBits/ScaleFactorBits
// where those were left unset, then validating every numeric range.
func Load(opts ...Option) (EncodeConfig, error) {
	c := defaults()
	for _, opt := range opts {
		opt(&c)
	}

	if c.ResidualBits == 0 || c.ScaleFactorBits == 0 {
		sb, rb, err := qualityTable(c.Quality)
		if err != nil {
			return EncodeConfig{}, err
		}
		if c.ResidualBits == 0 {
			c.ResidualBits = rb
		}
		if c.ScaleFactorBits == 0 {
			c.ScaleFactorBits = sb
		}
	}

	if err := c.validate(); err != nil {
		return EncodeConfig{}, err
	}
	return c, nil
}

func (c EncodeConfig) validate() error {
	switch {
	case c.ScaleFactorBits < 1 || c.ScaleFactorBits > 15:
		return fmt.Errorf("%w: scale_factor_bits %d", ErrParamOutOfRange, c.ScaleFactorBits)
	case c.ResidualBits < 1 || c.ResidualBits > 8:
		return fmt.Errorf("%w: residual_bits %d", ErrParamOutOfRange, c.ResidualBits)
	case c.FramesPerChunk < 1:
		return fmt.Errorf("%w: frames_per_chunk %d", ErrParamOutOfRange, c.FramesPerChunk)
	case c.ScaleFactorFrames < 1:
		return fmt.Errorf("%w: scale_factor_frames %d", ErrParamOutOfRange, c.ScaleFactorFrames)
	case c.ChunkSize < 1 || c.ChunkSize > 0xFFFF:
		return fmt.Errorf("%w: chunk_size %d", ErrParamOutOfRange, c.ChunkSize)
	case c.VBR && c.VBRTargetBPS <= 0:
		return fmt.Errorf("%w: vbr_target_bps %v", ErrParamOutOfRange, c.VBRTargetBPS)
	default:
		return nil
	}
}
