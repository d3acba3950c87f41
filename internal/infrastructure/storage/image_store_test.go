package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"glass-station/internal/domain/entity"
)

func TestFileImageStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "defects")
	store, err := NewFileImageStore(dir)
	require.NoError(t, err)

	det := entity.Detection{
		DefectType: "Discoloration",
		DetectedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
	}
	path, err := store.Save(context.Background(), det, []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))
	require.True(t, strings.HasPrefix(filepath.Base(path), "discoloration_20240101_100000_"))
	require.True(t, strings.HasSuffix(path, ".jpg"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestFileImageStore_RejectsEmptyInput(t *testing.T) {
	_, err := NewFileImageStore(" ")
	require.Error(t, err)

	store, err := NewFileImageStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save(context.Background(), entity.Detection{DefectType: "Crack"}, nil)
	require.Error(t, err)
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "defect", sanitize(""))
	require.Equal(t, "hair_line-2", sanitize("hair line-2"))
	require.Equal(t, "a__b", sanitize("a/.b"))
}
