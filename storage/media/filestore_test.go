package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core"
)

func TestFileStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(&core.Config{MediaRoot: root})
	ctx := context.Background()

	name, err := store.Save(ctx, "images/resource/./a.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "images/resource/a.png", name)

	data, err := os.ReadFile(filepath.Join(root, "images", "resource", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	for _, bad := range []string{"", "../a.png", "images/../../a.png", "/etc/passwd"} {
		_, err = store.Save(ctx, bad, []byte("x"))
		assert.Equal(t, ErrInvalidName, err, bad)
	}
}
