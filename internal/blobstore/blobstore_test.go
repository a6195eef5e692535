package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirUploader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	uploader, err := NewDirUploader(dir, "https://cdn.example.com/photos/")
	require.NoError(t, err)

	url, err := uploader.Upload(context.Background(), "p1_0", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/p1_0.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "p1_0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	url, err = uploader.Upload(context.Background(), "p1_1", []byte("?"), "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/p1_1.bin", url)
}

func TestDirUploaderRejectsPaths(t *testing.T) {
	uploader, err := NewDirUploader(t.TempDir(), "file://blobs")
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := uploader.Upload(context.Background(), name, []byte("x"), "image/png")
		assert.Error(t, err, name)
	}

	_, err = NewDirUploader("", "")
	assert.Error(t, err)
}
