package sea

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReader_RandomAccessMatchesSequentialDecode(t *testing.T) {
	params := defaultParams()
	params.FramesPerChunk = 256
	samples := [][]int16{triangleWave(5*256, 8000)}

	data, err := Encode(samples, 44100, params, map[string]string{"k": "v"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.sea")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fr, err := OpenFile(path)
	require.NoError(t, err)
	defer fr.Close()

	assert.Equal(t, uint32(44100), fr.SampleRate())
	assert.Equal(t, 1, fr.Channels())
	assert.Equal(t, 5*256, fr.Frames())
	assert.Equal(t, "v", fr.Metadata()["k"])
	assert.Equal(t, 5, fr.ChunkCount())

	sequential, err := Decode(data)
	require.NoError(t, err)

	// Read chunks out of order; each must decode independently and match
	// the corresponding slice from a full sequential decode.
	for _, idx := range []int{3, 0, 4, 1, 2} {
		chunk, err := fr.Chunk(idx)
		require.NoError(t, err)
		start := idx * params.FramesPerChunk
		end := start + params.FramesPerChunk
		assert.Equal(t, sequential.Samples[0][start:end], chunk[0], "chunk %d", idx)
	}
}

func TestFileReader_Chunk_OutOfRange(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	data, err := Encode(samples, 44100, defaultParams(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.sea")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fr, err := OpenFile(path)
	require.NoError(t, err)
	defer fr.Close()

	_, err = fr.Chunk(5)
	assert.Error(t, err)
}

func TestOpenFile_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sea")
	require.NoError(t, os.WriteFile(path, []byte("not a sea file, but long enough to pass the header length check"), 0o644))

	_, err := OpenFile(path)
	assert.ErrorIs(t, err, ErrBadMagic)
}
