package checksum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Reader(t *testing.T) {
	t.Run("Known Digest", func(t *testing.T) {
		digest, err := SHA256Reader(strings.NewReader("hello world"))
		require.NoError(t, err)
		assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
	})

	t.Run("Empty Input", func(t *testing.T) {
		digest, err := SHA256Reader(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
	})

	t.Run("Lowercase Hex Shape", func(t *testing.T) {
		digest, err := SHA256Reader(strings.NewReader("some artifact bytes"))
		require.NoError(t, err)
		assert.Len(t, digest, 64)
		assert.Equal(t, strings.ToLower(digest), digest)
	})
}

func TestSHA256File(t *testing.T) {
	t.Run("Stable Across Recomputation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifact.apk")
		require.NoError(t, os.WriteFile(path, []byte("apk payload"), 0o644))

		first, err := SHA256File(path)
		require.NoError(t, err)
		second, err := SHA256File(path)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Matches Reader Digest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "artifact.apk")
		require.NoError(t, os.WriteFile(path, []byte("apk payload"), 0o644))

		fromFile, err := SHA256File(path)
		require.NoError(t, err)
		fromReader, err := SHA256Reader(strings.NewReader("apk payload"))
		require.NoError(t, err)
		assert.Equal(t, fromReader, fromFile)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := SHA256File(filepath.Join(t.TempDir(), "missing.apk"))
		assert.Error(t, err)
	})
}
