package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkthrough/internal/logger"
)

func TestChangedReportsWrites(t *testing.T) {
	dir := t.TempDir()
	css := filepath.Join(dir, "viewer.css")
	other := filepath.Join(dir, "other.css")
	require.NoError(t, os.WriteFile(css, []byte(".debug {}"), 0o644))

	w, err := New(logger.Discard(), css)
	require.NoError(t, err)
	defer w.Close()
	assert.Empty(t, w.Changed())

	require.NoError(t, os.WriteFile(other, []byte(".x {}"), 0o644))
	require.NoError(t, os.WriteFile(css, []byte(".debug { color: #fff; }"), 0o644))

	var got []string
	require.Eventually(t, func() bool {
		got = append(got, w.Changed()...)
		return len(got) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, css, got[0])
	for _, p := range got {
		assert.NotEqual(t, other, p)
	}
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := New(logger.Discard(), filepath.Join(t.TempDir(), "missing", "viewer.css"))
	assert.Error(t, err)
}
