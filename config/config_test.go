package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, c.ResidualBits)
	assert.Equal(t, 4, c.ScaleFactorBits)
	assert.Equal(t, 5120, c.FramesPerChunk)
	assert.Equal(t, 20, c.ScaleFactorFrames)
	assert.False(t, c.VBR)
}

func TestLoad_QualityExpansion(t *testing.T) {
	c, err := Load(WithQuality(8))
	require.NoError(t, err)
	assert.Equal(t, 8, c.ResidualBits)
	assert.Equal(t, 6, c.ScaleFactorBits)

	c, err = Load(WithQuality(2))
	require.NoError(t, err)
	assert.Equal(t, 2, c.ResidualBits)
	assert.Equal(t, 4, c.ScaleFactorBits)
}

func TestLoad_ExplicitOverridesQuality(t *testing.T) {
	c, err := Load(WithQuality(1), WithResidualBits(7), WithScaleFactorBits(5))
	require.NoError(t, err)
	assert.Equal(t, 7, c.ResidualBits)
	assert.Equal(t, 5, c.ScaleFactorBits)
}

func TestLoad_VBR(t *testing.T) {
	c, err := Load(WithVBR(3.5))
	require.NoError(t, err)
	assert.True(t, c.VBR)
	assert.Equal(t, float32(3.5), c.VBRTargetBPS)

	_, err = Load(WithVBR(0))
	assert.ErrorIs(t, err, ErrParamOutOfRange)
}

func TestLoad_Metadata(t *testing.T) {
	c, err := Load(WithMetadata("artist", "x"), WithMetadata("title", "y"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"artist": "x", "title": "y"}, c.Metadata)
}

func TestLoad_QualityOutOfRange(t *testing.T) {
	_, err := Load(WithQuality(9))
	assert.ErrorIs(t, err, ErrQualityOutOfRange)

	_, err = Load(WithQuality(0))
	assert.ErrorIs(t, err, ErrQualityOutOfRange)
}

func TestLoad_InvalidChunkSize(t *testing.T) {
	_, err := Load(WithChunkSize(0))
	assert.ErrorIs(t, err, ErrParamOutOfRange)

	_, err = Load(WithChunkSize(0x10000))
	assert.ErrorIs(t, err, ErrParamOutOfRange)
}

func TestLoad_InvalidFramesPerChunk(t *testing.T) {
	_, err := Load(WithFramesPerChunk(0))
	assert.ErrorIs(t, err, ErrParamOutOfRange)
}
